package render

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
)

// Output formats.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatJSON     = "json"
	FormatMermaid  = "mermaid"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// Formats lists every supported format.
var Formats = []string{FormatSVG, FormatDOT, FormatGraphviz, FormatJSON, FormatMermaid, FormatPNG, FormatPDF}

// ContentType returns the MIME type of a format's output.
func ContentType(format string) string {
	switch format {
	case FormatSVG, FormatGraphviz:
		return "image/svg+xml"
	case FormatJSON:
		return "application/json"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateTheme checks that a theme name is known. Empty selects the default.
func ValidateTheme(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := themes[name]; !ok {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid theme: %q (must be one of: light, dark)", name)
	}
	return nil
}

// Options selects the output of [Render].
type Options struct {
	Format string  `json:"format"`
	Theme  string  `json:"theme,omitempty"`
	Scale  float64 `json:"scale,omitempty"` // png only; defaults to 2
}

// Render produces g in the requested format.
func Render(ctx context.Context, g graph.Graph, opts Options) ([]byte, error) {
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}
	if err := ValidateTheme(opts.Theme); err != nil {
		return nil, err
	}

	switch opts.Format {
	case FormatSVG:
		return SVG(g, WithTheme(opts.Theme), WithInteraction()), nil
	case FormatDOT:
		return []byte(DOT(g)), nil
	case FormatGraphviz:
		return RenderDOTSVG(ctx, DOT(g))
	case FormatJSON:
		return graph.MarshalGraph(g)
	case FormatMermaid:
		return []byte(Mermaid(g)), nil
	case FormatPNG:
		scale := opts.Scale
		if scale <= 0 {
			scale = 2.0
		}
		return ToPNG(ctx, SVG(g, WithTheme(opts.Theme)), scale)
	case FormatPDF:
		return ToPDF(ctx, SVG(g, WithTheme(opts.Theme)))
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "format %q", opts.Format)
}
