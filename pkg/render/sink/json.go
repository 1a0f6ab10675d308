package sink

import (
	"encoding/json"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	labeler *graph.Labeler
	indent  bool
}

// WithJSONLabeler fills in the label of every node.
func WithJSONLabeler(l *graph.Labeler) JSONOption { return func(r *jsonRenderer) { r.labeler = l } }

// WithJSONIndent pretty-prints the output.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

type jsonOutput struct {
	*layout.Result
	Labels map[string]string `json:"labels,omitempty"`
	Edges  []jsonEdge        `json:"edges"`
}

type jsonEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	Deletable bool   `json:"deletable"`
}

// RenderJSON serializes the layout together with the edges, so a consumer
// can draw the graph without the original description.
func RenderJSON(d *graph.Description, r *layout.Result, opts ...JSONOption) ([]byte, error) {
	jr := jsonRenderer{}
	for _, opt := range opts {
		opt(&jr)
	}

	out := jsonOutput{Result: r, Edges: make([]jsonEdge, 0, len(d.Edges))}
	for _, e := range d.Edges {
		out.Edges = append(out.Edges, jsonEdge{
			From:      e.From,
			To:        e.To,
			Type:      string(e.Type),
			Deletable: e.Type.Deletable(),
		})
	}
	if jr.labeler != nil {
		out.Labels = make(map[string]string, len(r.Nodes))
		for _, p := range r.Nodes {
			if l := jr.labeler.Label(p.Name); l != p.Name {
				out.Labels[p.Name] = l
			}
		}
	}

	if jr.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
