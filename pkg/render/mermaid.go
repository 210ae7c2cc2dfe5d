package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/stageflow/pkg/graph"
)

// Mermaid renders g as a left-to-right Mermaid flowchart. Stages, statuses
// and entity chips become nodes; the entity group becomes a subgraph.
// Geometry is not carried over.
//
// Node ids are replaced by positional identifiers (n0, n1, ...) since
// workflow ids may hold characters Mermaid cannot parse. The original id is
// kept in a comment above each definition.
func Mermaid(g graph.Graph) string {
	var b strings.Builder

	b.WriteString("flowchart LR\n")
	if c, ok := g.Node(graph.ContainerID); ok {
		fmt.Fprintf(&b, "    %%%% %s\n", mermaidComment(c.DisplayLabel()))
	}

	ids := mermaidIDs(g)
	for _, n := range g.Nodes {
		switch n.Kind {
		case graph.KindStage, graph.KindStatus:
			writeMermaidNode(&b, "    ", ids[n.ID], n)
		}
	}

	chips := g.NodesOfKind(graph.KindEntity)
	if group, ok := g.Node(graph.EntitiesGroupID); ok && (len(chips) > 0 || group.Overflow > 0) {
		label := group.DisplayLabel()
		if group.Overflow > 0 {
			label = fmt.Sprintf("%s (+%d more)", label, group.Overflow)
		}
		fmt.Fprintf(&b, "    subgraph %s[%q]\n", mermaidGroupID, mermaidEscapeLabel(label))
		for _, n := range chips {
			writeMermaidNode(&b, "        ", ids[n.ID], n)
		}
		b.WriteString("    end\n")
	}

	for _, e := range g.Edges {
		src, ok := ids[e.Source]
		if !ok {
			continue
		}
		dst, ok := ids[e.Target]
		if !ok {
			continue
		}
		arrow := "-->"
		if e.IsCustom() {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", src, arrow, dst)
	}

	b.WriteString("\n")
	b.WriteString("    classDef stage fill:#dbe8ff,stroke:#4a4a4a\n")
	b.WriteString("    classDef status fill:#fff1c2,stroke:#4a4a4a\n")
	b.WriteString("    classDef entity fill:#e3f5e1,stroke:#4a4a4a\n")
	b.WriteString("    classDef selected stroke:#ff8c00,stroke-width:3px\n")

	for _, n := range g.Nodes {
		id, ok := ids[n.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "    class %s %s\n", id, n.Kind)
		if n.Selected {
			fmt.Fprintf(&b, "    class %s selected\n", id)
		}
	}

	return b.String()
}

const mermaidGroupID = "entities"

// mermaidIDs assigns n0, n1, ... to stages, statuses and entity chips in
// node order. Nodes without an entry are not drawn.
func mermaidIDs(g graph.Graph) map[string]string {
	ids := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		switch n.Kind {
		case graph.KindStage, graph.KindStatus, graph.KindEntity:
			if _, dup := ids[n.ID]; !dup {
				ids[n.ID] = "n" + strconv.Itoa(len(ids))
			}
		}
	}
	return ids
}

func writeMermaidNode(b *strings.Builder, indent, id string, n graph.Node) {
	fmt.Fprintf(b, "%s%%%% %s\n", indent, mermaidComment(n.ID))

	label := mermaidEscapeLabel(n.DisplayLabel())
	switch n.Kind {
	case graph.KindStatus:
		fmt.Fprintf(b, "%s%s((%q))\n", indent, id, label)
	case graph.KindEntity:
		fmt.Fprintf(b, "%s%s([%q])\n", indent, id, label)
	default:
		fmt.Fprintf(b, "%s%s[%q]\n", indent, id, label)
	}
}

// mermaidComment keeps a comment on one line.
func mermaidComment(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// mermaidEscapeLabel replaces double quotes, which end a Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
