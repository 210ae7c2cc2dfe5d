package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/stageflow/pkg/graph"
)

const edgeInteractionCSS = `
    .node { transition: stroke-width 0.2s ease; }
    .node.highlight { stroke-width: 3; }
    .edge { transition: stroke-width 0.2s ease, opacity 0.2s ease; }
    .edge.dim { opacity: 0.2; }
    .edge.highlight { stroke-width: 3; }`

const edgeInteractionJS = `
    function focusNode(id) {
      document.querySelectorAll('.edge').forEach(e => {
        const hit = e.dataset.source === id || e.dataset.target === id;
        e.classList.toggle('highlight', hit);
        e.classList.toggle('dim', !hit);
      });
      document.querySelectorAll('.node').forEach(n => n.classList.toggle('highlight', n.dataset.nodeId === id));
    }
    function clearFocus() {
      document.querySelectorAll('.edge, .node').forEach(el => el.classList.remove('highlight', 'dim'));
    }
    document.querySelectorAll('.node').forEach(el => {
      el.addEventListener('mouseenter', () => focusNode(el.dataset.nodeId));
      el.addEventListener('mouseleave', clearFocus);
    });`

const (
	fontHeightRatio = 0.6
	fontWidthRatio  = 0.85
	fontCharWidth   = 0.55
	fontSizeMin     = 9.0
	fontSizeMax     = 16.0
)

// Theme is the palette used for nodes without an explicit color.
type Theme struct {
	Background string
	Container  string
	Stage      string
	Status     string
	Group      string
	Entity     string
	Stroke     string
	Text       string
	Edge       string
	Custom     string
	Selected   string
}

// Built-in themes.
var (
	ThemeLight = Theme{
		Background: "#ffffff", Container: "#f7f7f9", Stage: "#dbe8ff", Status: "#fff1c2",
		Group: "#f0f0f0", Entity: "#e3f5e1", Stroke: "#4a4a4a", Text: "#1f1f1f",
		Edge: "#6b6b6b", Custom: "#c0392b", Selected: "#ff8c00",
	}
	ThemeDark = Theme{
		Background: "#1e1e24", Container: "#26262e", Stage: "#2f4468", Status: "#6b5a1e",
		Group: "#2c2c34", Entity: "#2e5230", Stroke: "#c8c8d0", Text: "#f0f0f0",
		Edge: "#a0a0a8", Custom: "#ff6b5b", Selected: "#ffb347",
	}
)

var themes = map[string]Theme{
	"light": ThemeLight,
	"dark":  ThemeDark,
}

// SVGOption configures [SVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme       Theme
	interactive bool
}

// WithTheme selects a built-in theme by name. Unknown names keep the default.
func WithTheme(name string) SVGOption {
	return func(r *svgRenderer) {
		if t, ok := themes[name]; ok {
			r.theme = t
		}
	}
}

// WithPalette sets a custom theme.
func WithPalette(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithInteraction embeds hover highlighting of a node's edges.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// SVG draws g from its node geometry. The canvas is the container when
// present, otherwise the bounding box of all nodes.
func SVG(g graph.Graph, opts ...SVGOption) []byte {
	r := svgRenderer{theme: ThemeLight}
	for _, opt := range opts {
		opt(&r)
	}

	abs := g.Absolute()
	w, h := canvasSize(g, abs)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	r.renderDefs(&buf)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.theme.Background)

	// Frames first so edges draw over them and leaf nodes over edges.
	for _, n := range g.Nodes {
		if n.Kind == graph.KindContainer || n.Kind == graph.KindEntityGroup {
			r.renderNode(&buf, n, abs[n.ID])
		}
	}
	for _, e := range g.Edges {
		src, okS := abs[e.Source]
		dst, okD := abs[e.Target]
		if !okS || !okD {
			continue
		}
		r.renderEdge(&buf, e, src, dst)
	}
	for _, n := range g.Nodes {
		if n.Kind != graph.KindContainer && n.Kind != graph.KindEntityGroup {
			r.renderNode(&buf, n, abs[n.ID])
		}
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", edgeInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", edgeInteractionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func canvasSize(g graph.Graph, abs map[string]graph.Rect) (float64, float64) {
	if c, ok := abs[graph.ContainerID]; ok && c.Width > 0 && c.Height > 0 {
		return c.Right(), c.Bottom()
	}
	var w, h float64
	for _, r := range abs {
		w = math.Max(w, r.Right())
		h = math.Max(h, r.Bottom())
	}
	return math.Max(w, 1), math.Max(h, 1)
}

func (r *svgRenderer) renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, m := range []struct{ id, color string }{{"arrow", r.theme.Edge}, {"arrow-custom", r.theme.Custom}} {
		fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="7" markerHeight="7" orient="auto-start-reverse">`+
			`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n", m.id, m.color)
	}
	buf.WriteString("  </defs>\n")
}

func (r *svgRenderer) fill(n graph.Node) string {
	if n.Color != "" {
		return EscapeXML(n.Color)
	}
	switch n.Kind {
	case graph.KindContainer:
		return r.theme.Container
	case graph.KindStage:
		return r.theme.Stage
	case graph.KindStatus:
		return r.theme.Status
	case graph.KindEntityGroup:
		return r.theme.Group
	default:
		return r.theme.Entity
	}
}

func (r *svgRenderer) stroke(n graph.Node) (string, float64) {
	if n.Selected {
		return r.theme.Selected, 3
	}
	return r.theme.Stroke, 1.5
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, n graph.Node, b graph.Rect) {
	stroke, sw := r.stroke(n)
	id, kind := EscapeXML(n.ID), EscapeXML(n.Kind)
	attrs := fmt.Sprintf(`class="node %s" data-node-id="%s" data-kind="%s" fill="%s" stroke="%s" stroke-width="%.1f"`,
		kind, id, kind, r.fill(n), stroke, sw)

	switch n.Kind {
	case graph.KindContainer:
		fmt.Fprintf(buf, `  <rect id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="8" %s/>`+"\n",
			id, b.X, b.Y, b.Width, b.Height, attrs)
		r.renderText(buf, n.DisplayLabel(), b.X+16, b.Y+28, b.Width-32, 18, "start", true)

	case graph.KindEntityGroup:
		fmt.Fprintf(buf, `  <rect id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="6" stroke-dasharray="6 4" %s/>`+"\n",
			id, b.X, b.Y, b.Width, b.Height, attrs)
		label := n.DisplayLabel()
		if n.Overflow > 0 {
			label = fmt.Sprintf("%s (+%d more)", label, n.Overflow)
		}
		// Title sits above the frame, clear of the first chip row.
		r.renderText(buf, label, b.X+4, b.Y-6, b.Width, 12, "start", false)

	case graph.KindStatus:
		rad := math.Min(b.Width, b.Height) / 2
		fmt.Fprintf(buf, `  <circle id="node-%s" cx="%.2f" cy="%.2f" r="%.2f" %s/>`+"\n",
			id, b.CenterX(), b.CenterY(), rad, attrs)
		r.renderText(buf, n.DisplayLabel(), b.CenterX(), b.Bottom()+14, b.Width*2, 12, "middle", false)

	case graph.KindStage:
		fmt.Fprintf(buf, `  <rect id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="6" %s/>`+"\n",
			id, b.X, b.Y, b.Width, b.Height, attrs)
		r.renderText(buf, n.DisplayLabel(), b.CenterX(), b.CenterY()+5, b.Width, fontSizeFor(b.Width, b.Height, len(n.DisplayLabel())), "middle", true)

	default:
		fmt.Fprintf(buf, `  <rect id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.2f" %s/>`+"\n",
			id, b.X, b.Y, b.Width, b.Height, b.Height/2, attrs)
		r.renderText(buf, n.DisplayLabel(), b.CenterX(), b.CenterY()+4, b.Width-8, 11, "middle", false)
	}
}

func (r *svgRenderer) renderText(buf *bytes.Buffer, label string, x, y, availW, size float64, anchor string, bold bool) {
	weight := "normal"
	if bold {
		weight = "bold"
	}
	fmt.Fprintf(buf, `  <text x="%.2f" y="%.2f" text-anchor="%s" font-family="Helvetica, Arial, sans-serif" font-size="%.1f" font-weight="%s" fill="%s" pointer-events="none">%s</text>`+"\n",
		x, y, anchor, size, weight, r.theme.Text, EscapeXML(TruncateLabel(label, availW, size)))
}

func (r *svgRenderer) renderEdge(buf *bytes.Buffer, e graph.Edge, src, dst graph.Rect) {
	x1, y1, x2, y2 := anchors(src, dst)
	color, marker, dash := r.theme.Edge, "arrow", ""
	if e.IsCustom() {
		color, marker, dash = r.theme.Custom, "arrow-custom", ` stroke-dasharray="5 3"`
	}
	fmt.Fprintf(buf, `  <line class="edge %s" id="edge-%s" data-source="%s" data-target="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1.5"%s marker-end="url(#%s)"/>`+"\n",
		EscapeXML(e.Kind), EscapeXML(e.ID), EscapeXML(e.Source), EscapeXML(e.Target), x1, y1, x2, y2, color, dash, marker)
}

// anchors picks the facing sides of two boxes as line endpoints, falling
// back to the centers when the boxes overlap.
func anchors(a, b graph.Rect) (x1, y1, x2, y2 float64) {
	switch {
	case b.Y >= a.Bottom():
		return a.CenterX(), a.Bottom(), b.CenterX(), b.Y
	case b.Bottom() <= a.Y:
		return a.CenterX(), a.Y, b.CenterX(), b.Bottom()
	case b.X >= a.Right():
		return a.Right(), a.CenterY(), b.X, b.CenterY()
	case b.Right() <= a.X:
		return a.X, a.CenterY(), b.Right(), b.CenterY()
	}
	return a.CenterX(), a.CenterY(), b.CenterX(), b.CenterY()
}

func fontSizeFor(availWidth, availHeight float64, textLen int) float64 {
	n := max(1, textLen)
	byHeight := availHeight * fontHeightRatio
	byWidth := (availWidth * fontWidthRatio) / (float64(n) * fontCharWidth)
	return max(fontSizeMin, min(fontSizeMax, min(byHeight, byWidth)))
}

// TruncateLabel shortens label to what fits in width at the given font size.
func TruncateLabel(label string, width, fontSize float64) string {
	maxChars := int(width * fontWidthRatio / (fontSize * fontCharWidth))
	if maxChars < 3 {
		maxChars = 3
	}
	runes := []rune(label)
	if len(runes) <= maxChars {
		return label
	}
	return strings.TrimRight(string(runes[:maxChars-2]), " ") + ".."
}

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
