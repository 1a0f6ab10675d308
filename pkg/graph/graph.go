package graph

import (
	"fmt"

	"github.com/matzehuels/depview/pkg/errors"
)

// =============================================================================
// Edge Types
// =============================================================================

// EdgeType tags an edge with the relationship it represents.
type EdgeType string

const (
	// EdgeDep is a build dependency. Dep edges can be deleted in edit mode.
	EdgeDep EdgeType = "dep"

	// EdgeCopy is a copy-artifact relationship. Copy edges are never deletable.
	EdgeCopy EdgeType = "copy"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	return t == EdgeDep || t == EdgeCopy
}

// Deletable reports whether edges of this type accept delete gestures.
func (t EdgeType) Deletable() bool {
	return t == EdgeDep
}

// =============================================================================
// Shapes
// =============================================================================

// Shape identifies which generation of the description a cluster uses.
type Shape int

const (
	// ShapeEmpty is reported for descriptions without clusters.
	ShapeEmpty Shape = iota

	// ShapeGrid clusters map level indexes to node names.
	ShapeGrid

	// ShapePrecomputed clusters list nodes with explicit coordinates.
	ShapePrecomputed
)

// String returns the shape name used in flags and error messages.
func (s Shape) String() string {
	switch s {
	case ShapeGrid:
		return "grid"
	case ShapePrecomputed:
		return "precomputed"
	default:
		return "empty"
	}
}

// =============================================================================
// Description Types
// =============================================================================

// Node is a job in the graph.
type Node struct {
	Name     string  `json:"name"`
	FullName string  `json:"fullName,omitempty"`
	URL      string  `json:"url,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`

	// Cluster is the index of the owning cluster. Level is the level index for
	// grid clusters and zero otherwise. Both are filled in by [Description.Nodes].
	Cluster int `json:"-"`
	Level   int `json:"-"`
}

// Level is one horizontal band of a grid cluster.
type Level struct {
	Index int
	Nodes []string
}

// Cluster is a group of nodes laid out together.
// Grid clusters use Levels; precomputed clusters use Nodes and the size fields.
type Cluster struct {
	Levels []Level
	Nodes  []Node
	HSize  float64
	VSize  float64

	shape Shape
}

// Shape reports which generation of the description this cluster came from.
func (c Cluster) Shape() Shape {
	if c.shape != ShapeEmpty {
		return c.shape
	}
	if c.Nodes != nil {
		return ShapePrecomputed
	}
	return ShapeGrid
}

// MaxLevelWidth returns the number of nodes on the widest level.
func (c Cluster) MaxLevelWidth() int {
	widest := 0
	for _, l := range c.Levels {
		widest = max(widest, len(l.Nodes))
	}
	return widest
}

// Edge is a directed relationship between two nodes, referenced by Name.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// String formats the edge the way confirmations and logs show it.
func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// Description is a complete graph as served by the backend.
type Description struct {
	Clusters []Cluster `json:"clusters"`
	Edges    []Edge    `json:"edges"`
}

// Shape returns the shape shared by all clusters.
// Validation guarantees the clusters agree.
func (d *Description) Shape() Shape {
	if len(d.Clusters) == 0 {
		return ShapeEmpty
	}
	return d.Clusters[0].Shape()
}

// Nodes returns every node in document order with Cluster and Level set.
// Grid nodes carry only their Name.
func (d *Description) Nodes() []Node {
	var out []Node
	for ci, c := range d.Clusters {
		for _, l := range c.Levels {
			for _, name := range l.Nodes {
				out = append(out, Node{Name: name, Cluster: ci, Level: l.Index})
			}
		}
		for _, n := range c.Nodes {
			n.Cluster = ci
			out = append(out, n)
		}
	}
	return out
}

// Node looks up a node by name.
func (d *Description) Node(name string) (Node, bool) {
	for _, n := range d.Nodes() {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// NodeCount returns the number of nodes across all clusters.
func (d *Description) NodeCount() int {
	n := 0
	for _, c := range d.Clusters {
		for _, l := range c.Levels {
			n += len(l.Nodes)
		}
		n += len(c.Nodes)
	}
	return n
}

// EdgeCount returns the number of edges.
func (d *Description) EdgeCount() int {
	return len(d.Edges)
}

// Identities returns a lookup from node name to backend identity.
func (d *Description) Identities() map[string]string {
	ids := make(map[string]string, d.NodeCount())
	for _, n := range d.Nodes() {
		if n.FullName != "" {
			ids[n.Name] = n.FullName
		} else {
			ids[n.Name] = n.Name
		}
	}
	return ids
}

// BackendIdentity returns the identity used in edge mutation paths for the
// named node: its FullName when set, otherwise the name itself.
func (d *Description) BackendIdentity(name string) string {
	if n, ok := d.Node(name); ok && n.FullName != "" {
		return n.FullName
	}
	return name
}

// Validate checks the structural invariants of the description.
func (d *Description) Validate() error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidGraph, "graph description is missing")
	}

	var shape Shape
	for i, c := range d.Clusters {
		s := c.Shape()
		if i == 0 {
			shape = s
		} else if s != shape {
			return errors.New(errors.ErrCodeInvalidGraph,
				"cluster %d is %s but cluster 0 is %s", i, s, shape)
		}
		for _, l := range c.Levels {
			if l.Index < 0 {
				return errors.New(errors.ErrCodeInvalidGraph, "cluster %d: negative level %d", i, l.Index)
			}
		}
		if c.VSize < 0 || c.HSize < 0 {
			return errors.New(errors.ErrCodeInvalidGraph, "cluster %d: negative size", i)
		}
	}

	seen := make(map[string]bool, d.NodeCount())
	for _, n := range d.Nodes() {
		if err := errors.ValidateIdentity(n.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidGraph, err, "cluster %d", n.Cluster)
		}
		if seen[n.Name] {
			return errors.New(errors.ErrCodeInvalidGraph, "duplicate node %q", n.Name)
		}
		seen[n.Name] = true
	}

	for i, e := range d.Edges {
		if e.From == "" || e.To == "" {
			return errors.New(errors.ErrCodeInvalidGraph, "edge %d: missing endpoint", i)
		}
		if !e.Type.Valid() {
			return errors.New(errors.ErrCodeInvalidGraph, "edge %s: unknown type %q", e, e.Type)
		}
		if !seen[e.From] {
			return errors.New(errors.ErrCodeInvalidGraph, "edge %s: unknown node %q", e, e.From)
		}
		if !seen[e.To] {
			return errors.New(errors.ErrCodeInvalidGraph, "edge %s: unknown node %q", e, e.To)
		}
	}
	return nil
}
