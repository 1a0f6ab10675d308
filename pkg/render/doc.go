// Package render turns a laid-out dependency graph into static outputs.
//
// Two subpackages do the work:
//
//   - [sink]: hand-written SVG, an ECharts HTML page and layout JSON
//   - [nodelink]: Graphviz DOT with pinned node positions, rendered to SVG
//     or PNG in-process
//
// Every renderer takes the same inputs: a validated [graph.Description] and
// the [layout.Result] computed for it. None of them re-run the layout, so
// every output puts a node at the same coordinates the interactive viewer
// uses.
//
// Edges are colored by type (dep red, copy green) and an optional legend
// names the two types.
//
// [sink]: github.com/matzehuels/depview/pkg/render/sink
// [nodelink]: github.com/matzehuels/depview/pkg/render/nodelink
// [graph.Description]: github.com/matzehuels/depview/pkg/graph.Description
// [layout.Result]: github.com/matzehuels/depview/pkg/layout.Result
package render

// Legend captions for the two edge types.
const (
	LegendDep  = "Dependency Graph"
	LegendCopy = "Copy Artifact"
)
