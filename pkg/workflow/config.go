package workflow

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/matzehuels/stageflow/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API and TUI
// =============================================================================

const (
	DefaultContainerWidth  = 800.0
	DefaultContainerHeight = 600.0
	DefaultStageWidth      = 220.0
	DefaultStageHeight     = 100.0
	DefaultCircleSize      = 60.0
	DefaultPadding         = 30.0
	DefaultVerticalSpacing = 40.0
	DefaultHeaderHeight    = 40.0
	DefaultChipWidth       = 160.0
	DefaultChipHeight      = 32.0
	DefaultChipGap         = 10.0

	// MinStageSpacing is the narrowest gap allowed between two stage cards.
	MinStageSpacing = 20.0
)

// LayoutConfig holds the geometry parameters of the diagram. It is pure
// configuration; every value used by the layout engine lives here.
type LayoutConfig struct {
	ContainerWidth  float64 `json:"containerWidth" toml:"container_width" validate:"gt=0"`
	ContainerHeight float64 `json:"containerHeight" toml:"container_height" validate:"gt=0"`
	StageWidth      float64 `json:"stageWidth" toml:"stage_width" validate:"gt=0"`
	StageHeight     float64 `json:"stageHeight" toml:"stage_height" validate:"gt=0"`
	CircleSize      float64 `json:"circleSize" toml:"circle_size" validate:"gt=0"`
	Padding         float64 `json:"padding" toml:"padding" validate:"gte=0"`
	VerticalSpacing float64 `json:"verticalSpacing" toml:"vertical_spacing" validate:"gte=0"`
	HeaderHeight    float64 `json:"headerHeight" toml:"header_height" validate:"gte=0"`
	ChipWidth       float64 `json:"chipWidth" toml:"chip_width" validate:"gt=0"`
	ChipHeight      float64 `json:"chipHeight" toml:"chip_height" validate:"gt=0"`
	ChipGap         float64 `json:"chipGap" toml:"chip_gap" validate:"gte=0"`
}

// DefaultLayoutConfig returns the documented default geometry.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		ContainerWidth:  DefaultContainerWidth,
		ContainerHeight: DefaultContainerHeight,
		StageWidth:      DefaultStageWidth,
		StageHeight:     DefaultStageHeight,
		CircleSize:      DefaultCircleSize,
		Padding:         DefaultPadding,
		VerticalSpacing: DefaultVerticalSpacing,
		HeaderHeight:    DefaultHeaderHeight,
		ChipWidth:       DefaultChipWidth,
		ChipHeight:      DefaultChipHeight,
		ChipGap:         DefaultChipGap,
	}
}

// WithDefaults returns c with every zero field replaced by its default.
// Zero is never a meaningful size, so a partially filled config file or
// request body can omit what it does not care about.
func (c LayoutConfig) WithDefaults() LayoutConfig {
	d := DefaultLayoutConfig()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&c.ContainerWidth, d.ContainerWidth)
	fill(&c.ContainerHeight, d.ContainerHeight)
	fill(&c.StageWidth, d.StageWidth)
	fill(&c.StageHeight, d.StageHeight)
	fill(&c.CircleSize, d.CircleSize)
	fill(&c.Padding, d.Padding)
	fill(&c.VerticalSpacing, d.VerticalSpacing)
	fill(&c.HeaderHeight, d.HeaderHeight)
	fill(&c.ChipWidth, d.ChipWidth)
	fill(&c.ChipHeight, d.ChipHeight)
	fill(&c.ChipGap, d.ChipGap)
	return c
}

// Validate checks that every size is usable.
// Returns a ValidationError with code INVALID_CONFIG naming the first bad field.
func (c LayoutConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Invalid(apperrors.ErrCodeInvalidConfig, fe.Field(),
				"must be %s %s (got %v)", comparison(fe.Tag()), fe.Param(), fe.Value())
		}
		return apperrors.Invalid(apperrors.ErrCodeInvalidConfig, "", "%v", err)
	}
	if 2*c.Padding >= c.ContainerWidth {
		return apperrors.Invalid(apperrors.ErrCodeInvalidConfig, "padding",
			"twice the padding (%v) must be smaller than containerWidth (%v)", 2*c.Padding, c.ContainerWidth)
	}
	return nil
}

var configValidator = newConfigValidator()

// newConfigValidator reports field names by their JSON key so errors match
// what users write in request bodies.
func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func comparison(tag string) string {
	switch tag {
	case "gt":
		return ">"
	case "gte":
		return ">="
	case "lt":
		return "<"
	case "lte":
		return "<="
	default:
		return tag
	}
}
