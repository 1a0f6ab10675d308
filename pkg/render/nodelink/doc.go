// Package nodelink renders a laid-out graph through Graphviz.
//
// [ToDOT] writes DOT source in which every node carries a pinned pos
// attribute taken from the layout, so the neato engine keeps the viewer's
// coordinates instead of computing its own. Edges are colored by type and
// copy edges carry a "copy" label.
//
//	dot := nodelink.ToDOT(desc, result, nodelink.Options{Legend: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// Rendering runs in-process through [github.com/goccy/go-graphviz]; no
// Graphviz installation is needed.
package nodelink
