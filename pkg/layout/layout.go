package layout

import (
	"encoding/json"
	"math"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/graph"
)

// Placement is the computed position of one node.
type Placement struct {
	Name    string  `json:"name"`
	Token   string  `json:"token"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
	Level   int     `json:"level"`
}

// Extent is the bounding box of a cluster.
type Extent struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the right edge of the extent.
func (e Extent) Right() float64 { return e.Left + e.Width }

// Bottom returns the bottom edge of the extent.
func (e Extent) Bottom() float64 { return e.Top + e.Height }

// Result holds every node placement and cluster extent of a description.
type Result struct {
	Policy     Policy      `json:"policy"`
	Nodes      []Placement `json:"nodes"`
	Clusters   []Extent    `json:"clusters"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	NodeWidth  float64     `json:"node_width"`
	NodeHeight float64     `json:"node_height"`

	index map[string]int
}

// Position looks up the placement of the named node.
func (r *Result) Position(name string) (Placement, bool) {
	if r.index == nil {
		for _, p := range r.Nodes {
			if p.Name == name {
				return p, true
			}
		}
		return Placement{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Placement{}, false
	}
	return r.Nodes[i], true
}

// Compute lays out d according to opts.
// Identical inputs always produce identical results.
func Compute(d *graph.Description, opts Options) (*Result, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph description is missing")
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	policy, err := resolvePolicy(d.Shape(), opts.Policy)
	if err != nil {
		return nil, err
	}

	r := &Result{
		Policy:     policy,
		Nodes:      make([]Placement, 0, d.NodeCount()),
		Clusters:   make([]Extent, 0, len(d.Clusters)),
		NodeWidth:  opts.NodeWidth,
		NodeHeight: opts.NodeHeight,
	}
	switch policy {
	case PolicyGrid:
		computeGrid(d, opts, r)
	case PolicyPrecomputed:
		computePrecomputed(d, opts, r)
	}
	r.fitFrame()
	r.reindex()
	return r, nil
}

// UnmarshalJSON decodes a cached result and rebuilds its lookup index.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Result(p)
	r.reindex()
	return nil
}

func (r *Result) reindex() {
	r.index = make(map[string]int, len(r.Nodes))
	for i, p := range r.Nodes {
		r.index[p.Name] = i
	}
}

func resolvePolicy(shape graph.Shape, p Policy) (Policy, error) {
	switch p {
	case PolicyAuto:
		if shape == graph.ShapePrecomputed {
			return PolicyPrecomputed, nil
		}
		return PolicyGrid, nil
	case PolicyGrid:
		if shape == graph.ShapePrecomputed {
			return "", errors.New(errors.ErrCodeInvalidGraph, "grid policy needs level clusters, got precomputed nodes")
		}
	case PolicyPrecomputed:
		if shape == graph.ShapeGrid {
			return "", errors.New(errors.ErrCodeInvalidGraph, "precomputed policy needs node coordinates, got level clusters")
		}
	}
	return p, nil
}

// ClusterWidth is the width needed by a cluster whose widest level holds
// widest nodes: every box plus a gap between neighbours.
func ClusterWidth(widest int, opts Options) float64 {
	if widest <= 0 {
		return 0
	}
	return float64(widest)*opts.NodeWidth + float64(widest-1)*opts.NodeGap
}

// LevelPositions returns the anchor x of n nodes spread across a cluster
// starting at left with the given width. A single node sits at the center;
// otherwise the first node is at left and the last at left+width.
func LevelPositions(n int, left, width, nodeWidth float64) []float64 {
	switch n {
	case 0:
		return nil
	case 1:
		return []float64{left + width/2}
	}
	spaces := float64(n - 1)
	gap := (width - spaces*nodeWidth) / spaces
	step := gap + nodeWidth

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = left + float64(i)*step
	}
	return xs
}

func computeGrid(d *graph.Description, opts Options, r *Result) {
	left := 0.0
	for ci, c := range d.Clusters {
		width := ClusterWidth(c.MaxLevelWidth(), opts)
		first := len(r.Nodes)

		for _, l := range c.Levels {
			y := float64(l.Index)*opts.LevelHeight + opts.TopMargin
			for i, x := range LevelPositions(len(l.Nodes), left, width, opts.NodeWidth) {
				name := l.Nodes[i]
				r.Nodes = append(r.Nodes, Placement{
					Name:    name,
					Token:   Token(name),
					X:       x,
					Y:       y,
					Cluster: ci,
					Level:   l.Index,
				})
			}
		}

		ext := boundingBox(r.Nodes[first:], opts)
		if len(r.Nodes) == first {
			ext = Extent{Left: left, Top: opts.TopMargin}
		}
		r.Clusters = append(r.Clusters, ext)

		left += width + opts.NodeWidth + opts.ClusterGap
	}
}

func computePrecomputed(d *graph.Description, opts Options, r *Result) {
	top := opts.TopMargin
	for ci, c := range d.Clusters {
		first := len(r.Nodes)
		for _, n := range c.Nodes {
			r.Nodes = append(r.Nodes, Placement{
				Name:    n.Name,
				Token:   Token(n.Name),
				X:       n.X + opts.OffsetX,
				Y:       n.Y + top,
				Cluster: ci,
			})
		}

		ext := Extent{Left: opts.OffsetX, Top: top, Width: c.HSize, Height: c.VSize}
		if c.HSize == 0 && len(r.Nodes) > first {
			bb := boundingBox(r.Nodes[first:], opts)
			ext.Width = bb.Right() - ext.Left
		}
		r.Clusters = append(r.Clusters, ext)

		top += c.VSize + opts.ClusterGap
	}
}

func boundingBox(ps []Placement, opts Options) Extent {
	if len(ps) == 0 {
		return Extent{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range ps {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X+opts.NodeWidth)
		maxY = math.Max(maxY, p.Y+opts.NodeHeight)
	}
	return Extent{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}
}

// fitFrame sizes the drawing area to cover every node box and cluster.
func (r *Result) fitFrame() {
	for _, p := range r.Nodes {
		r.Width = math.Max(r.Width, p.X+r.NodeWidth)
		r.Height = math.Max(r.Height, p.Y+r.NodeHeight)
	}
	for _, c := range r.Clusters {
		r.Width = math.Max(r.Width, c.Right())
		r.Height = math.Max(r.Height, c.Bottom())
	}
}
