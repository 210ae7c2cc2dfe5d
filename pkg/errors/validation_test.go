package errors

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "intake", false},
		{"with dash", "stage-1", false},
		{"with dot and colon", "ns:stage.review", false},
		{"unicode", "étape", false},

		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", 300), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"tab", "foo\tbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("stages[0].id", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidWorkflow) {
				t.Errorf("ValidateID(%q) returned wrong error code: %v", tt.input, err)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("ValidateID(%q) should return a ValidationError", tt.input)
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := Invalid(ErrCodeInvalidWorkflow, "statusNodes", "must be an array")
	want := "INVALID_WORKFLOW: statusNodes: must be an array"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
