// Package sink writes a laid-out graph to static output formats.
//
//   - [RenderSVG]: standalone SVG with boxes, arrowed edges colored by type,
//     node links and an optional legend
//   - [RenderHTML]: an ECharts page with nodes fixed at layout coordinates
//   - [RenderJSON]: the layout result itself, for external viewers
//
// Sinks never compute positions; they draw exactly what [layout.Compute]
// returned.
//
// [layout.Compute]: github.com/matzehuels/depview/pkg/layout.Compute
package sink
