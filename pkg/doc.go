// Package pkg provides the core libraries for stageflow workflow diagrams.
//
// # Overview
//
// Stageflow turns a workflow definition (stages, the statuses they emit and
// the entities involved) into a positioned node/edge graph and renders it.
// The pkg directory is organized by pipeline step:
//
//  1. [workflow] - Input types, decoding, validation and layout config
//  2. [layout] - Node positions for stages, statuses and entity chips
//  3. [connect] - Inferred stage→status and status→stage edges
//  4. [assemble] - Layout plus edges plus user-drawn edges in one graph
//  5. [render] - SVG, DOT, Graphviz, Mermaid, JSON, PNG and PDF output
//  6. [pipeline] - Orchestration with caching (load → assemble → render)
//
// Supporting packages: [catalog] (workflow providers), [cache] (file,
// Redis and null caches), [dispatch] and [session] (interactive state),
// [config] (TOML config file), [observability] (hooks), [errors] and
// [graph] (the serialized graph).
//
// # Architecture
//
//	catalog.Provider
//	       ↓
//	  workflow.Data ──→ layout.Compute ──┐
//	       │                             ├──→ assemble.Assemble ──→ graph.Graph
//	       └──────────→ connect.Infer ───┘                               ↓
//	                                                               render.Render
//
// # Quick Start
//
//	p, _ := catalog.Builtin()
//	data, _ := p.Get(ctx, "order-fulfilment")
//	g := assemble.Assemble(data, workflow.DefaultLayoutConfig(), assemble.State{Expanded: true}, nil)
//	svg := render.SVG(g)
//
// [workflow]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/workflow
// [layout]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/layout
// [connect]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/connect
// [assemble]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/assemble
// [render]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/pipeline
// [catalog]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/catalog
// [cache]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/cache
// [dispatch]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/dispatch
// [session]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/errors
// [graph]: https://pkg.go.dev/github.com/matzehuels/stageflow/pkg/graph
package pkg
