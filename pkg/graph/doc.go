// Package graph provides serialization types for assembled workflow diagrams.
//
// This package defines the canonical wire format for stageflow's output, used
// for JSON files, API responses, caching and as input to every renderer.
//
// # Core Types
//
//   - [Graph]: positioned nodes plus edges for one workflow
//   - [Node]: a positioned element (container, stage, status, entity group, entity)
//   - [Edge]: a directed connection (inferred or user-drawn)
//   - [Rect]: absolute geometry resolved with [Graph.Absolute]
//
// # Constants
//
// This package is the single source of truth for node and edge kinds and for
// the ids of the structural nodes:
//
//	graph.KindContainer     // "container"
//	graph.KindStage         // "stage"
//	graph.EdgeSequence      // "sequence"
//	graph.ContainerID       // "workflow-container"
//	graph.EntitiesGroupID   // "entities-group"
//
// # Serialization
//
//	{
//	  "workflow_id": "order-fulfilment",
//	  "nodes": [{"id": "workflow-container", "kind": "container", "x": 0, "y": 0, "width": 800, "height": 600}],
//	  "edges": [{"id": "pick-to-picked", "source": "pick", "target": "picked", "kind": "stage-status"}]
//	}
//
// Common operations:
//
//	data, _ := graph.MarshalGraph(g)
//	g, _ := graph.UnmarshalGraph(data)
//	graph.WriteGraphFile(g, "diagram.json")
//
// # Coordinates
//
// Node coordinates are relative to the parent node's origin. Use
// [Graph.Absolute] when a renderer needs page coordinates.
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
