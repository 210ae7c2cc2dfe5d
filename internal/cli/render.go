package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stageflow/pkg/catalog"
	"github.com/matzehuels/stageflow/pkg/render"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      diagramFlags
		formatsStr string
		theme      string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "render <workflow-id | file>",
		Short: "Render a workflow diagram",
		Long: `Render a workflow diagram in one or more formats.

Formats: svg (default), dot, graphviz, json, mermaid, png, pdf. The graphviz
format draws the DOT output with the embedded Graphviz engine; png and pdf
convert the SVG with rsvg-convert, which must be installed.

With a single format, -o names the output file ("-" writes to stdout). With
several formats, -o is a base path and each format gets its own extension.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeWorkflowIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			return c.runRender(cmd.Context(), args[0], &flags, formats, theme, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s), comma-separated: "+strings.Join(render.Formats, ", "))
	cmd.Flags().StringVar(&theme, "theme", "", "SVG theme: light (default), dark")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, source string, flags *diagramFlags, formats []string, theme, output string) error {
	runner, id, err := c.newRunner(ctx, source, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts, err := c.options(flags, id)
	if err != nil {
		return err
	}
	opts.Formats = formats
	opts.Theme = theme
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", id))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if len(formats) == 1 && output == "-" {
		_, err := os.Stdout.Write(result.Artifacts[formats[0]])
		return err
	}

	base := basePath(output, source, id)
	var written []string
	for _, format := range formats {
		path := base + extensionFor(format)
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		written = append(written, path)
	}
	prog.done(fmt.Sprintf("Rendered %d artifact(s)", len(written)))

	printSuccess("Rendered %s", id)
	for _, p := range written {
		printFile(p)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.GraphHit && result.CacheInfo.RenderHit)
	return nil
}

// extensionFor returns the file extension, including the dot, for format.
func extensionFor(format string) string {
	switch format {
	case render.FormatGraphviz:
		return ".graphviz.svg"
	case render.FormatMermaid:
		return ".mmd"
	default:
		return "." + format
	}
}

// basePath derives the output path without extension. An explicit output
// loses a known format extension; otherwise a workflow file keeps its own
// name and a catalog id is used as is.
func basePath(output, source, id string) string {
	if output != "" {
		ext := strings.TrimPrefix(filepath.Ext(output), ".")
		if slices.Contains(render.Formats, ext) || ext == "mmd" {
			return strings.TrimSuffix(output, filepath.Ext(output))
		}
		return output
	}
	if catalog.IsWorkflowFile(source) {
		return strings.TrimSuffix(source, filepath.Ext(source))
	}
	return id
}
