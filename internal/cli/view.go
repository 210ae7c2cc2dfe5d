package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stageflow/pkg/dispatch"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/pipeline"
	"github.com/matzehuels/stageflow/pkg/render"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "view [workflow-id | file]",
		Short: "Explore a workflow diagram in the terminal",
		Long: `Explore a workflow diagram in the terminal.

Keys:
  ←/→  move focus        enter  click focused node
  t    toggle entities   c      connect (press on source, then target)
  x    remove last custom edge
  n/p  next/previous workflow
  s    save SVG          q      quit`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeWorkflowIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source := ""
			if len(args) == 1 {
				source = args[0]
			}

			runner, id, err := c.newRunner(ctx, source, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			list, err := runner.Provider.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("catalog has no workflows")
			}
			ids := make([]string, len(list))
			for i, s := range list {
				ids[i] = s.ID
			}
			if id == "" {
				id = ids[0]
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m, err := newViewModel(ctx, runner, cfg.Layout, ids, id)
			if err != nil {
				return err
			}

			_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

// =============================================================================
// viewModel - Interactive diagram
// =============================================================================

var (
	viewStageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			Width(18)
	viewStatusStyle = lipgloss.NewStyle().Width(22).Align(lipgloss.Center)
	viewChipStyle   = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.Color("237")).
			Padding(0, 1).
			MarginRight(1)
	viewFocusColor    = colorCyan
	viewSelectedColor = colorYellow
	viewCustomStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// viewModel drives one dispatch session from the keyboard. Every change goes
// through the dispatcher and a full re-assemble, like the HTTP session API.
type viewModel struct {
	ctx        context.Context
	runner     *pipeline.Runner
	dispatcher *dispatch.Dispatcher
	layout     workflow.LayoutConfig
	workflows  []string

	session dispatch.Session
	graph   graph.Graph
	focus   int
	pending string // connect source awaiting a target
	message string
}

func newViewModel(ctx context.Context, runner *pipeline.Runner, cfg workflow.LayoutConfig, workflows []string, id string) (viewModel, error) {
	m := viewModel{
		ctx:        ctx,
		runner:     runner,
		dispatcher: dispatch.New(),
		layout:     cfg,
		workflows:  workflows,
		session:    dispatch.NewSession(id),
	}
	g, err := m.assemble(m.session)
	if err != nil {
		return viewModel{}, err
	}
	m.graph = g
	return m, nil
}

func (m viewModel) assemble(s dispatch.Session) (graph.Graph, error) {
	data, err := m.runner.Load(m.ctx, s.WorkflowID)
	if err != nil {
		return graph.Graph{}, err
	}
	return m.runner.Assemble(m.ctx, data, pipeline.Options{
		Layout: m.layout,
		State:  s.State(),
		Edges:  s.Edges,
	})
}

// focusable returns the ids that can take keyboard focus: stages, statuses,
// then the entity group.
func (m viewModel) focusable() []string {
	var ids []string
	for _, kind := range []string{graph.KindStage, graph.KindStatus, graph.KindEntityGroup} {
		for _, n := range m.graph.NodesOfKind(kind) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (m viewModel) focused() string {
	ids := m.focusable()
	if m.focus < 0 || m.focus >= len(ids) {
		return ""
	}
	return ids[m.focus]
}

// apply dispatches ev and re-assembles. On any error the previous session
// and graph stay in place.
func (m viewModel) apply(ev dispatch.Event) viewModel {
	next := m.session
	next.Edges = slices.Clone(m.session.Edges)
	if err := m.dispatcher.Dispatch(&next, m.graph, ev); err != nil {
		m.message = "error: " + err.Error()
		return m
	}
	g, err := m.assemble(next)
	if err != nil {
		m.message = "error: " + err.Error()
		return m
	}
	if next.WorkflowID != m.session.WorkflowID {
		m.focus = 0
	}
	m.session, m.graph = next, g
	if n := len(m.focusable()); m.focus >= n {
		m.focus = max(n-1, 0)
	}
	return m
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.message = ""

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.pending = ""
	case "left", "h":
		if m.focus > 0 {
			m.focus--
		}
	case "right", "l":
		if m.focus < len(m.focusable())-1 {
			m.focus++
		}
	case "enter", " ":
		m = m.apply(dispatch.Event{Type: dispatch.EventClick, NodeID: m.focused()})
	case "t":
		m = m.apply(dispatch.Event{Type: dispatch.EventToggle})
	case "c":
		target := m.focused()
		if m.pending == "" {
			m.pending = target
			m.message = "connect from " + target + ": focus a target and press c"
			break
		}
		source := m.pending
		m.pending = ""
		m = m.apply(dispatch.Event{Type: dispatch.EventConnect, Source: source, Target: target})
	case "x":
		custom := m.graph.CustomEdges()
		if len(custom) == 0 {
			m.message = "no custom edges"
			break
		}
		m = m.apply(dispatch.Event{Type: dispatch.EventDisconnect, EdgeID: custom[len(custom)-1].ID})
	case "n", "p":
		m = m.apply(dispatch.Event{Type: dispatch.EventSelectWorkflow, WorkflowID: m.cycle(key.String() == "n")})
	case "s":
		m.message = m.save()
	}
	return m, nil
}

// cycle returns the neighbouring workflow id.
func (m viewModel) cycle(forward bool) string {
	i := slices.Index(m.workflows, m.session.WorkflowID)
	step := 1
	if !forward {
		step = len(m.workflows) - 1
	}
	return m.workflows[(i+step+len(m.workflows))%len(m.workflows)]
}

func (m viewModel) save() string {
	artifacts, err := m.runner.Render(m.ctx, m.graph, pipeline.Options{Formats: []string{render.FormatSVG}})
	if err != nil {
		return "error: " + err.Error()
	}
	path := m.session.WorkflowID + ".svg"
	if err := os.WriteFile(path, artifacts[render.FormatSVG], 0o644); err != nil {
		return "error: " + err.Error()
	}
	return "saved " + path
}

func (m viewModel) View() string {
	var b strings.Builder
	focused := m.focused()

	title := m.session.WorkflowID
	if n, ok := m.graph.Node(graph.ContainerID); ok && n.Label != "" {
		title = n.Label
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%s]", m.session.WorkflowID)))
	b.WriteString("\n\n")

	var stages []string
	for _, n := range m.graph.NodesOfKind(graph.KindStage) {
		style := viewStageStyle
		switch {
		case n.Selected:
			style = style.BorderForeground(viewSelectedColor).Border(lipgloss.ThickBorder())
		case n.ID == focused:
			style = style.BorderForeground(viewFocusColor)
		}
		stages = append(stages, style.Render(n.DisplayLabel()))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, stages...))
	b.WriteString("\n")

	var statuses []string
	for _, n := range m.graph.NodesOfKind(graph.KindStatus) {
		mark, style := "○", viewStatusStyle
		if n.Selected {
			mark, style = "●", style.Foreground(viewSelectedColor)
		} else if n.ID == focused {
			style = style.Foreground(viewFocusColor)
		}
		statuses = append(statuses, style.Render(mark+" "+n.DisplayLabel()))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, statuses...))
	b.WriteString("\n\n")

	b.WriteString(m.entities(focused))
	b.WriteString("\n\n")
	b.WriteString(m.edges())

	if m.message != "" {
		b.WriteString("\n" + StyleWarning.Render(m.message))
	}
	b.WriteString("\n" + StyleDim.Render("←/→ focus  ⏎ click  t toggle  c connect  x unlink  n/p workflow  s save  q quit"))
	return b.String()
}

func (m viewModel) entities(focused string) string {
	group, ok := m.graph.Node(graph.EntitiesGroupID)
	if !ok {
		return ""
	}
	header := "▸ Entities"
	if m.session.Expanded {
		header = "▾ Entities"
	}
	style := lipgloss.NewStyle().Foreground(colorGray)
	if group.ID == focused {
		style = style.Foreground(viewFocusColor)
	}
	out := style.Render(header)
	if !m.session.Expanded {
		return out
	}

	var chips []string
	for _, n := range m.graph.NodesOfKind(graph.KindEntity) {
		chips = append(chips, viewChipStyle.Render(n.DisplayLabel()))
	}
	if group.Overflow > 0 {
		chips = append(chips, StyleDim.Render(fmt.Sprintf("+%d more", group.Overflow)))
	}
	return out + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m viewModel) edges() string {
	lines := make([]string, 0, len(m.graph.Edges))
	for _, e := range m.graph.Edges {
		line := fmt.Sprintf("%s %s %s", e.Source, iconArrow, e.Target)
		if e.IsCustom() {
			lines = append(lines, viewCustomStyle.Render(line+"  (custom)"))
			continue
		}
		lines = append(lines, StyleDim.Render(line))
	}
	return strings.Join(lines, "\n")
}
