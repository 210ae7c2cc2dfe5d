package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
)

const pointsPerInch = 72.0

// DOT converts g to Graphviz DOT for the neato engine. Every node is pinned
// at its layout center, so Graphviz only routes edges and draws shapes.
// Graphviz's y axis points up; positions are flipped against the canvas
// height.
func DOT(g graph.Graph) string {
	abs := g.Absolute()
	_, h := canvasSize(g, abs)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fixedsize=true, fontname=\"Helvetica\", fontsize=11, style=filled];\n")
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("\n")

	// Frames are declared first so they are drawn beneath their children.
	for _, n := range g.Nodes {
		if n.Kind == graph.KindContainer || n.Kind == graph.KindEntityGroup {
			writeDOTNode(&buf, n, abs[n.ID], h)
		}
	}
	for _, n := range g.Nodes {
		if n.Kind != graph.KindContainer && n.Kind != graph.KindEntityGroup {
			writeDOTNode(&buf, n, abs[n.ID], h)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if _, ok := abs[e.Source]; !ok {
			continue
		}
		if _, ok := abs[e.Target]; !ok {
			continue
		}
		attrs := []string{fmt.Sprintf("id=%q", e.ID)}
		if e.IsCustom() {
			attrs = append(attrs, `style=dashed`, `color="#c0392b"`)
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeDOTNode(buf *bytes.Buffer, n graph.Node, r graph.Rect, canvasH float64) {
	label := n.DisplayLabel()
	if n.Kind == graph.KindEntityGroup && n.Overflow > 0 {
		label = fmt.Sprintf("%s (+%d more)", label, n.Overflow)
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf(`pos="%.2f,%.2f!"`, r.CenterX(), canvasH-r.CenterY()),
		fmt.Sprintf("width=%.4f", r.Width/pointsPerInch),
		fmt.Sprintf("height=%.4f", r.Height/pointsPerInch),
	}
	attrs = append(attrs, dotShape(n)...)
	if n.Color != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", n.Color))
	}
	if n.Selected {
		attrs = append(attrs, `color="#ff8c00"`, "penwidth=3")
	}
	fmt.Fprintf(buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
}

func dotShape(n graph.Node) []string {
	switch n.Kind {
	case graph.KindContainer:
		return []string{"shape=box", `style="rounded,filled"`, `fillcolor="#f7f7f9"`, "labelloc=t", "fontsize=16"}
	case graph.KindEntityGroup:
		return []string{"shape=box", `style="rounded,dashed"`, "labelloc=t"}
	case graph.KindStage:
		return []string{"shape=box", `style="rounded,filled"`, `fillcolor="#dbe8ff"`, "fontsize=14"}
	case graph.KindStatus:
		return []string{"shape=circle", `fillcolor="#fff1c2"`}
	default:
		return []string{"shape=box", `style="rounded,filled"`, `fillcolor="#e3f5e1"`}
	}
}

// RenderDOTSVG renders a DOT document to SVG with Graphviz neato.
func RenderDOTSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a
// pixel-sized one that scales cleanly in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
