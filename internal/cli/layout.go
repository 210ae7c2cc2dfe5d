package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/pipeline"
)

// diagramFlags are the assemble options shared by layout and render.
type diagramFlags struct {
	expanded       bool
	selected       string
	edgesFile      string
	containerWidth float64
	stageWidth     float64
	noCache        bool
	refresh        bool
}

func (f *diagramFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.expanded, "expanded", "e", false, "show entity chips")
	cmd.Flags().StringVar(&f.selected, "selected", "", "highlight the node with this id")
	cmd.Flags().StringVar(&f.edgesFile, "edges", "", "keep the custom edges of a previous graph.json")
	cmd.Flags().Float64Var(&f.containerWidth, "width", 0, "container width (default from config)")
	cmd.Flags().Float64Var(&f.stageWidth, "stage-width", 0, "stage width (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even when cached")
}

// options builds pipeline options for workflow id on top of the config.
func (c *CLI) options(f *diagramFlags, id string) (pipeline.Options, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		WorkflowID: id,
		Refresh:    f.refresh,
		Layout:     cfg.Layout,
		State:      assemble.State{Expanded: f.expanded, Selected: f.selected},
	}
	if f.containerWidth > 0 {
		opts.Layout.ContainerWidth = f.containerWidth
	}
	if f.stageWidth > 0 {
		opts.Layout.StageWidth = f.stageWidth
	}

	if f.edgesFile != "" {
		prev, err := graph.ReadGraphFile(f.edgesFile)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("load edges %s: %w", f.edgesFile, err)
		}
		opts.State.WorkflowID = prev.WorkflowID
		opts.Edges = prev.CustomEdges()
		if prev.WorkflowID != id {
			c.Logger.Warn("edges belong to another workflow and are ignored", "file", f.edgesFile, "workflow", prev.WorkflowID)
		}
	}
	return opts, nil
}

// layoutCommand creates the layout command that writes the assembled graph.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags  diagramFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout <workflow-id | file>",
		Short: "Assemble a workflow and write the graph as JSON",
		Long: `Assemble a workflow into a positioned graph and write it as JSON.

The argument is a workflow id from the configured catalog, or the path of a
workflow file (.json, .yaml, .yml). Node coordinates of entity chips are
relative to the entities group; everything else is absolute.

Pass a previous output with --edges to carry its custom edges forward.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeWorkflowIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], &flags, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, source string, flags *diagramFlags, output string) error {
	runner, id, err := c.newRunner(ctx, source, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts, err := c.options(flags, id)
	if err != nil {
		return err
	}

	data, err := runner.Load(ctx, id)
	if err != nil {
		return err
	}
	g, hit, err := runner.AssembleWithCacheInfo(ctx, data, opts)
	if err != nil {
		return fmt.Errorf("assemble %s: %w", id, err)
	}

	if output == "" || output == "-" {
		return graph.WriteGraph(g, os.Stdout)
	}
	if err := graph.WriteGraphFile(g, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(len(g.Nodes), len(g.Edges), hit)
	printNewline()
	printNextStep("Render", appName+" render "+source+" --edges "+output)
	return nil
}
