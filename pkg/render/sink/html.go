package sink

import (
	"bytes"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/render"
	"github.com/matzehuels/depview/pkg/surface"
)

// HTMLOption configures [RenderHTML].
type HTMLOption func(*htmlRenderer)

type htmlRenderer struct {
	title   string
	labeler *graph.Labeler
}

// WithTitle sets the page title. Defaults to "depview".
func WithTitle(title string) HTMLOption { return func(r *htmlRenderer) { r.title = title } }

// WithHTMLLabeler maps node names to the labels drawn on the chart.
func WithHTMLLabeler(l *graph.Labeler) HTMLOption { return func(r *htmlRenderer) { r.labeler = l } }

// RenderHTML writes a self-contained ECharts page. Nodes are pinned to the
// layout coordinates; dep and copy edges are separate series so the chart
// legend toggles them.
func RenderHTML(w io.Writer, d *graph.Description, r *layout.Result, options ...HTMLOption) error {
	hr := htmlRenderer{title: "depview"}
	for _, opt := range options {
		opt(&hr)
	}

	page := components.NewPage()
	page.PageTitle = hr.title
	page.AddCharts(hr.graphChart(d, r))
	return page.Render(w)
}

// RenderHTMLBytes is [RenderHTML] into a buffer.
func RenderHTMLBytes(d *graph.Description, r *layout.Result, options ...HTMLOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, d, r, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (hr htmlRenderer) graphChart(d *graph.Description, r *layout.Result) *charts.Graph {
	g := charts.NewGraph()
	g.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: hr.title,
			Height:    "100vh",
			Width:     "100vw",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	nodes := hr.chartNodes(r)
	series := []struct {
		name string
		t    graph.EdgeType
	}{
		{render.LegendDep, graph.EdgeDep},
		{render.LegendCopy, graph.EdgeCopy},
	}
	for _, s := range series {
		g.AddSeries(s.name, nodes, chartLinks(d, s.t),
			charts.WithGraphChartOpts(opts.GraphChart{
				Layout:     "none",
				Roam:       opts.Bool(true),
				EdgeSymbol: []string{"none", "arrow"},
			}),
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Color:    "black",
				Position: "inside",
			}),
			charts.WithLineStyleOpts(opts.LineStyle{
				Color: surface.ColorFor(s.t),
				Width: 2,
			}),
		)
	}
	return g
}

func (hr htmlRenderer) chartNodes(r *layout.Result) []opts.GraphNode {
	out := make([]opts.GraphNode, 0, len(r.Nodes))
	for _, p := range r.Nodes {
		out = append(out, opts.GraphNode{
			Name:       p.Name,
			X:          float32(p.X + r.NodeWidth/2),
			Y:          float32(p.Y + r.NodeHeight/2),
			Symbol:     "rect",
			SymbolSize: []float64{r.NodeWidth, r.NodeHeight},
			ItemStyle:  &opts.ItemStyle{Color: "#ffffff", BorderColor: "#333333", BorderWidth: 1},
			Value:      float32(p.Level),
		})
	}
	return out
}

func chartLinks(d *graph.Description, t graph.EdgeType) []opts.GraphLink {
	var out []opts.GraphLink
	for _, e := range d.Edges {
		if e.Type != t {
			continue
		}
		out = append(out, opts.GraphLink{Source: e.From, Target: e.To})
	}
	return out
}
