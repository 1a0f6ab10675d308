package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/render"
	"github.com/matzehuels/depview/pkg/surface"
)

// pointsPerInch converts layout pixels (treated as points) to DOT sizes.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Legend appends a key explaining the two edge colors below the graph.
	Legend bool

	// Labeler maps node names to the text drawn in each box.
	Labeler *graph.Labeler
}

// ToDOT converts a description and its layout to Graphviz DOT.
// Node identities are quoted verbatim; positions are box centers with the
// y axis flipped, since Graphviz grows upward.
func ToDOT(d *graph.Description, r *layout.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph depview {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=10, fixedsize=true, width=%s, height=%s];\n",
		inches(r.NodeWidth), inches(r.NodeHeight))
	buf.WriteString("  edge [penwidth=2, arrowsize=0.8];\n\n")

	for _, p := range r.Nodes {
		attrs := []string{
			fmt.Sprintf("label=%q", opts.Labeler.Label(p.Name)),
			fmt.Sprintf("pos=%q", pos(p.X+r.NodeWidth/2, p.Y+r.NodeHeight/2)),
			fmt.Sprintf("id=%q", p.Token),
		}
		if n, ok := d.Node(p.Name); ok && n.URL != "" {
			attrs = append(attrs, fmt.Sprintf("URL=%q", n.URL), fmt.Sprintf("tooltip=%q", n.URL))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", p.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(edgeAttrs(e.Type), ", "))
	}

	if opts.Legend {
		writeLegend(&buf, r)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func edgeAttrs(t graph.EdgeType) []string {
	attrs := []string{fmt.Sprintf("color=%q", surface.ColorFor(t))}
	if t == graph.EdgeCopy {
		attrs = append(attrs, `label="copy"`, fmt.Sprintf("fontcolor=%q", surface.ColorCopy))
	}
	return attrs
}

// writeLegend draws one short sample edge per type under the frame.
func writeLegend(buf *bytes.Buffer, r *layout.Result) {
	y := r.Height + r.NodeHeight
	rows := []struct {
		id      string
		caption string
		t       graph.EdgeType
	}{
		{"dep", render.LegendDep, graph.EdgeDep},
		{"copy", render.LegendCopy, graph.EdgeCopy},
	}

	buf.WriteString("\n  subgraph legend {\n")
	buf.WriteString("    node [shape=point, width=0.05, style=filled, fillcolor=black, label=\"\"];\n")
	for i, row := range rows {
		ly := y + float64(i)*r.NodeHeight
		from, to := "__legend_"+row.id+"_a", "__legend_"+row.id+"_b"
		fmt.Fprintf(buf, "    %q [pos=%q];\n", from, pos(0, ly))
		fmt.Fprintf(buf, "    %q [pos=%q];\n", to, pos(r.NodeWidth, ly))
		fmt.Fprintf(buf, "    %q -> %q [color=%q, headlabel=%q, labelangle=0, labeldistance=6];\n",
			from, to, surface.ColorFor(row.t), row.caption)
	}
	buf.WriteString("  }\n")
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 3, 64)
}

func pos(x, y float64) string {
	return fmt.Sprintf("%s,%s!", strconv.FormatFloat(x, 'f', 1, 64), strconv.FormatFloat(-y, 'f', 1, 64))
}

// RenderSVG lays out dot with neato, keeping pinned positions, and returns SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out dot with neato and returns a PNG image.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one so the SVG scales inside the viewer page.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
