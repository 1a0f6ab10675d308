package sink

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/render"
	"github.com/matzehuels/depview/pkg/surface"
)

const svgInteractionCSS = `
    .node rect { fill: #fff; stroke: #333; stroke-width: 1; rx: 4; }
    .node text { font: 11px sans-serif; text-anchor: middle; dominant-baseline: middle; }
    .node:hover rect { stroke-width: 3; }
    .edge { stroke-width: 2; fill: none; }
    .edge-label, .legend text { font: 10px sans-serif; }`

// legendHeight is the space reserved under the frame for the legend.
const legendHeight = 60

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	labeler *graph.Labeler
	legend  bool
	links   bool
}

func WithLabeler(l *graph.Labeler) SVGOption { return func(r *svgRenderer) { r.labeler = l } }
func WithLegend() SVGOption                  { return func(r *svgRenderer) { r.legend = true } }

// WithoutLinks drops the anchors around nodes that carry a URL.
func WithoutLinks() SVGOption { return func(r *svgRenderer) { r.links = false } }

// RenderSVG draws d at the positions in r.
func RenderSVG(d *graph.Description, r *layout.Result, opts ...SVGOption) []byte {
	sr := svgRenderer{links: true}
	for _, opt := range opts {
		opt(&sr)
	}

	width, height := r.Width+r.NodeWidth, r.Height+r.NodeHeight
	if sr.legend {
		height += legendHeight
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	renderDefs(&buf)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgInteractionCSS)

	for _, e := range d.Edges {
		renderEdge(&buf, r, e)
	}
	for _, p := range r.Nodes {
		n, _ := d.Node(p.Name)
		sr.renderNode(&buf, r, p, n.URL)
	}
	if sr.legend {
		renderLegend(&buf, r.Height+r.NodeHeight)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func markerID(t graph.EdgeType) string { return "arrow-" + string(t) }

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, t := range []graph.EdgeType{graph.EdgeDep, graph.EdgeCopy} {
		fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n",
			markerID(t), surface.ColorFor(t))
	}
	buf.WriteString("  </defs>\n")
}

func (sr svgRenderer) renderNode(buf *bytes.Buffer, r *layout.Result, p layout.Placement, url string) {
	label := html.EscapeString(sr.labeler.Label(p.Name))
	if sr.links && url != "" {
		fmt.Fprintf(buf, `  <a xlink:href="%s" href="%s" target="_blank">`+"\n", html.EscapeString(url), html.EscapeString(url))
		defer buf.WriteString("  </a>\n")
	}
	fmt.Fprintf(buf, `  <g class="node" id="node-%s"><title>%s</title>`, p.Token, html.EscapeString(p.Name))
	fmt.Fprintf(buf, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>`, p.X, p.Y, r.NodeWidth, r.NodeHeight)
	fmt.Fprintf(buf, `<text x="%.1f" y="%.1f">%s</text></g>`+"\n", p.X+r.NodeWidth/2, p.Y+r.NodeHeight/2, label)
}

func renderEdge(buf *bytes.Buffer, r *layout.Result, e graph.Edge) {
	from, ok1 := r.Position(e.From)
	to, ok2 := r.Position(e.To)
	if !ok1 || !ok2 {
		return
	}
	x1, y1, x2, y2 := edgeEndpoints(r, from, to)
	color := surface.ColorFor(e.Type)
	fmt.Fprintf(buf, `  <line class="edge edge-%s" id="edge-%s-%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" marker-end="url(#%s)"/>`+"\n",
		e.Type, from.Token, to.Token, x1, y1, x2, y2, color, markerID(e.Type))
	if e.Type == graph.EdgeCopy {
		fmt.Fprintf(buf, `  <text class="edge-label" x="%.1f" y="%.1f" fill="%s">copy</text>`+"\n",
			(x1+x2)/2+4, (y1+y2)/2, color)
	}
}

// edgeEndpoints clips the center-to-center segment to the two box borders.
func edgeEndpoints(r *layout.Result, from, to layout.Placement) (x1, y1, x2, y2 float64) {
	cx1, cy1 := from.X+r.NodeWidth/2, from.Y+r.NodeHeight/2
	cx2, cy2 := to.X+r.NodeWidth/2, to.Y+r.NodeHeight/2
	dx, dy := cx2-cx1, cy2-cy1
	if dx == 0 && dy == 0 {
		// Self-loop: a short tick off the right side.
		return cx1 + r.NodeWidth/2, cy1, cx1 + r.NodeWidth/2 + 15, cy1 - 15
	}
	t := boxExit(dx, dy, r.NodeWidth/2, r.NodeHeight/2)
	return cx1 + dx*t, cy1 + dy*t, cx2 - dx*t, cy2 - dy*t
}

// boxExit returns the fraction of (dx, dy) at which a ray from a box center
// leaves a box of half-size (hw, hh).
func boxExit(dx, dy, hw, hh float64) float64 {
	tx, ty := math.Inf(1), math.Inf(1)
	if dx != 0 {
		tx = hw / math.Abs(dx)
	}
	if dy != 0 {
		ty = hh / math.Abs(dy)
	}
	return math.Min(math.Min(tx, ty), 0.5)
}

func renderLegend(buf *bytes.Buffer, top float64) {
	rows := []struct {
		t       graph.EdgeType
		caption string
	}{
		{graph.EdgeDep, render.LegendDep},
		{graph.EdgeCopy, render.LegendCopy},
	}
	fmt.Fprintf(buf, `  <g class="legend" transform="translate(10,%.1f)">`+"\n", top+10)
	for i, row := range rows {
		y := float64(i) * 22
		color := surface.ColorFor(row.t)
		fmt.Fprintf(buf, `    <line class="edge" x1="0" y1="%.1f" x2="40" y2="%.1f" stroke="%s" marker-end="url(#%s)"/>`+"\n",
			y, y, color, markerID(row.t))
		fmt.Fprintf(buf, `    <text x="50" y="%.1f" dominant-baseline="middle">%s</text>`+"\n", y, row.caption)
	}
	buf.WriteString("  </g>\n")
}
