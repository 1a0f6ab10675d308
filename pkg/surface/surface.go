// Package surface defines the rendering surface the interaction bridge draws
// on, and an in-memory implementation of it.
//
// A surface places node boxes, draws connectors between them and reports two
// gestures: drag-to-connect (create) and click-on-connector (delete). The
// browser page served by depview, the terminal editor and the tests all
// drive the same [Canvas]; they differ only in how gestures reach it and how
// its events are displayed.
package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/matzehuels/depview/pkg/graph"
)

// Connector colors.
const (
	ColorDep    = "#FF0000"
	ColorNewDep = "#FFFF00"
	ColorCopy   = "#32CD32"
)

// Sentinel errors returned by gesture simulation.
var (
	ErrReadOnly         = errors.New("surface is read-only")
	ErrUnknownNode      = errors.New("unknown node")
	ErrUnknownConnector = errors.New("unknown connector")
)

// ColorFor returns the stroke color of an existing edge of type t.
func ColorFor(t graph.EdgeType) string {
	if t == graph.EdgeCopy {
		return ColorCopy
	}
	return ColorDep
}

// NodeSpec describes a node box to place.
type NodeSpec struct {
	Name  string  `json:"name"`
	Token string  `json:"token"`
	Label string  `json:"label"`
	URL   string  `json:"url,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`

	// Connectable nodes can start and end drag-to-connect gestures.
	Connectable bool `json:"connectable"`
}

// Connector is a drawn edge.
type Connector struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Type      graph.EdgeType `json:"type"`
	Color     string         `json:"color"`
	Label     string         `json:"label,omitempty"`
	Deletable bool           `json:"deletable"`

	// Pending is set while an optimistically drawn connector awaits the backend.
	Pending bool `json:"pending,omitempty"`
}

// String formats the connector the way the delete confirmation shows it.
func (c Connector) String() string {
	return fmt.Sprintf("%s -> %s", c.From, c.To)
}

// CreateHandler is called after a drag-to-connect gesture has drawn c.
type CreateHandler func(ctx context.Context, c Connector)

// DeleteHandler is called when a deletable connector is clicked.
type DeleteHandler func(ctx context.Context, c Connector)

// Surface is a drawing target for nodes and connectors.
//
// Connect with the ID of an existing connector replaces that connector's
// attributes in place; an ID that names no connector yields
// ErrUnknownConnector. Registering a nil handler removes it.
type Surface interface {
	PlaceNode(n NodeSpec) error
	Connect(c Connector) (Connector, error)
	Disconnect(id string) error
	OnCreateGesture(h CreateHandler)
	OnDeleteGesture(h DeleteHandler)
}
