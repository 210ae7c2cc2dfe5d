// Package render turns an assembled workflow [graph.Graph] into output
// documents.
//
// # Formats
//
//   - svg: a self-contained SVG drawn directly from node geometry ([SVG])
//   - dot: Graphviz DOT with every node pinned to its layout position ([DOT])
//   - graphviz: the DOT document rendered to SVG by Graphviz neato ([RenderDOTSVG])
//   - json: the graph itself ([graph.MarshalGraph])
//   - mermaid: a Mermaid flowchart ([Mermaid])
//   - png, pdf: the SVG converted with rsvg-convert ([ToPNG], [ToPDF])
//
// [Render] dispatches on [Options.Format]:
//
//	out, err := render.Render(ctx, g, render.Options{Format: render.FormatSVG})
//
// # Coordinates
//
// Graph nodes are positioned relative to their parent. Every renderer
// resolves page coordinates with [graph.Graph.Absolute] first, so nested
// entity chips land inside their group.
//
// # Edges
//
// Edges whose endpoints are not in the graph are skipped. This happens
// for user-drawn edges to entity chips while the group is collapsed.
package render
