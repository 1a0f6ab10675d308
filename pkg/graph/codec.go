package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/matzehuels/depview/pkg/errors"
)

// =============================================================================
// Description Serialization API
// =============================================================================

// UnmarshalDescription decodes and validates a graph description.
func UnmarshalDescription(data []byte) (*Description, error) {
	return readDescriptionFrom(bytes.NewReader(data))
}

// ReadDescription decodes and validates a graph description from r.
func ReadDescription(r io.Reader) (*Description, error) {
	return readDescriptionFrom(r)
}

// ReadDescriptionFile reads a graph.json file from disk.
func ReadDescriptionFile(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readDescriptionFrom(f)
}

// MarshalDescription encodes a description in its own shape.
func MarshalDescription(d *Description) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDescriptionTo(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDescriptionFile writes a description to path.
func WriteDescriptionFile(d *Description, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeDescriptionTo(d, f)
}

// =============================================================================
// Cluster JSON
// =============================================================================

type precomputedCluster struct {
	Nodes []Node  `json:"nodes"`
	HSize float64 `json:"hSize,omitempty"`
	VSize float64 `json:"vSize"`
}

// UnmarshalJSON accepts both the grid and the precomputed cluster shapes.
func (c *Cluster) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if _, ok := raw["nodes"]; ok {
		var pc precomputedCluster
		if err := json.Unmarshal(data, &pc); err != nil {
			return err
		}
		if pc.Nodes == nil {
			pc.Nodes = []Node{}
		}
		for i, n := range pc.Nodes {
			if n.Name == "" {
				return fmt.Errorf("node %d: missing name", i)
			}
		}
		*c = Cluster{Nodes: pc.Nodes, HSize: pc.HSize, VSize: pc.VSize, shape: ShapePrecomputed}
		return nil
	}

	levels := make([]Level, 0, len(raw))
	for key, msg := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("level key %q is not a number", key)
		}
		var names []string
		if err := json.Unmarshal(msg, &names); err != nil {
			return fmt.Errorf("level %d: %w", idx, err)
		}
		levels = append(levels, Level{Index: idx, Nodes: names})
	}
	slices.SortFunc(levels, func(a, b Level) int { return a.Index - b.Index })

	*c = Cluster{Levels: levels, shape: ShapeGrid}
	return nil
}

// MarshalJSON writes the cluster back in the shape it was read in.
func (c Cluster) MarshalJSON() ([]byte, error) {
	if c.Shape() == ShapePrecomputed {
		nodes := c.Nodes
		if nodes == nil {
			nodes = []Node{}
		}
		return json.Marshal(precomputedCluster{Nodes: nodes, HSize: c.HSize, VSize: c.VSize})
	}
	levels := make(map[string][]string, len(c.Levels))
	for _, l := range c.Levels {
		levels[strconv.Itoa(l.Index)] = l.Nodes
	}
	return json.Marshal(levels)
}

// =============================================================================
// Internal Implementation
// =============================================================================

type rawDescription struct {
	Clusters *[]Cluster `json:"clusters"`
	Edges    *[]Edge    `json:"edges"`
}

func readDescriptionFrom(r io.Reader) (*Description, error) {
	var raw rawDescription
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode graph description")
	}
	if raw.Clusters == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph description has no clusters field")
	}
	if raw.Edges == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph description has no edges field")
	}

	d := &Description{Clusters: *raw.Clusters, Edges: *raw.Edges}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func writeDescriptionTo(d *Description, w io.Writer) error {
	out := *d
	if out.Clusters == nil {
		out.Clusters = []Cluster{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
