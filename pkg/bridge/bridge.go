// Package bridge connects a rendering surface to the backend edge API.
//
// A [Bridge] is built once per viewing session from a [Config]. [Bridge.Attach]
// draws the laid-out graph on a [surface.Surface] and, when editing is
// enabled, registers the gesture handlers that mirror surface changes to the
// backend:
//
//   - a drag-to-connect gesture issues exactly one PUT /edge/{from}/{to}. The
//     connector is already drawn; on failure the backend's message is shown
//     and the connector stays unless RetractOnFailure is set.
//   - a click on a dep connector asks "delete connection: A -> B?". Declining
//     does nothing. Confirming issues exactly one DELETE /edge/{from}/{to};
//     success removes the connector, failure shows the message and keeps it.
//
// Copy connectors never react to clicks. With editing disabled no handlers
// are registered at all. No request is ever retried.
package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/observability"
	"github.com/matzehuels/depview/pkg/surface"
)

// EdgeAPI mutates edges on the backend. Identities are backend identities;
// implementations take care of path encoding.
type EdgeAPI interface {
	PutEdge(ctx context.Context, from, to string) error
	DeleteEdge(ctx context.Context, from, to string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Mutation operations.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// Mutation describes a finished backend call.
type Mutation struct {
	Op       string
	From, To string // node names
	Err      error
	Duration time.Duration
}

// Config is the session state shared by every gesture handler.
type Config struct {
	Description *graph.Description
	Layout      *layout.Result

	// Edit enables gesture handlers and connectable nodes.
	Edit bool

	// RetractOnFailure removes an optimistically drawn connector when the
	// backend rejects it. Off by default: the connector stays drawn.
	RetractOnFailure bool

	API       EdgeAPI
	Confirmer Confirmer
	Notifier  Notifier
	Labeler   *graph.Labeler
	Logger    *log.Logger

	// OnMutation, if set, is called after every successful backend call.
	OnMutation func(ctx context.Context, m Mutation)
}

// Bridge wires one session's gestures to the backend.
type Bridge struct {
	cfg Config
	ids map[string]string
	log *log.Logger
}

// New validates cfg and creates a Bridge.
func New(cfg Config) (*Bridge, error) {
	if cfg.Description == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph description is missing")
	}
	if cfg.Layout == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout is missing")
	}
	if cfg.Edit {
		switch {
		case cfg.API == nil:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "edit mode needs an edge API")
		case cfg.Confirmer == nil:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "edit mode needs a confirmer")
		case cfg.Notifier == nil:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "edit mode needs a notifier")
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		cfg: cfg,
		ids: cfg.Description.Identities(),
		log: logger,
	}, nil
}

// Editable reports whether the bridge registers gesture handlers.
func (b *Bridge) Editable() bool {
	return b.cfg.Edit
}

// Attach draws every node and edge on s and, in edit mode, registers the
// create and delete gesture handlers.
func (b *Bridge) Attach(s surface.Surface) error {
	nodes := make(map[string]graph.Node, b.cfg.Description.NodeCount())
	for _, n := range b.cfg.Description.Nodes() {
		nodes[n.Name] = n
	}

	for _, p := range b.cfg.Layout.Nodes {
		err := s.PlaceNode(surface.NodeSpec{
			Name:        p.Name,
			Token:       p.Token,
			Label:       b.cfg.Labeler.Label(p.Name),
			URL:         nodes[p.Name].URL,
			X:           p.X,
			Y:           p.Y,
			Connectable: b.cfg.Edit,
		})
		if err != nil {
			return fmt.Errorf("place %s: %w", p.Name, err)
		}
	}

	for _, e := range b.cfg.Description.Edges {
		c := surface.Connector{
			From:      e.From,
			To:        e.To,
			Type:      e.Type,
			Color:     surface.ColorFor(e.Type),
			Deletable: b.cfg.Edit && e.Type.Deletable(),
		}
		if e.Type == graph.EdgeCopy {
			c.Label = "copy"
		}
		if _, err := s.Connect(c); err != nil {
			return fmt.Errorf("connect %s: %w", e, err)
		}
	}

	if b.cfg.Edit {
		s.OnCreateGesture(func(ctx context.Context, c surface.Connector) {
			b.CreateEdge(ctx, s, c)
		})
		s.OnDeleteGesture(func(ctx context.Context, c surface.Connector) {
			b.DeleteEdge(ctx, s, c)
		})
	}

	b.log.Debug("attached surface",
		"nodes", len(b.cfg.Layout.Nodes),
		"edges", len(b.cfg.Description.Edges),
		"edit", b.cfg.Edit)
	return nil
}

// CreateEdge mirrors an optimistically drawn connector to the backend.
func (b *Bridge) CreateEdge(ctx context.Context, s surface.Surface, c surface.Connector) {
	from, to := b.identity(c.From), b.identity(c.To)

	start := time.Now()
	err := b.cfg.API.PutEdge(ctx, from, to)
	d := time.Since(start)
	b.record(ctx, Mutation{Op: OpPut, From: c.From, To: c.To, Err: err, Duration: d})

	if err != nil {
		b.log.Warn("create edge failed", "from", from, "to", to, "error", err)
		b.cfg.Notifier.Notify(ctx, errors.UserMessage(err))
		if b.cfg.RetractOnFailure {
			if derr := s.Disconnect(c.ID); derr != nil {
				b.log.Warn("retract connector failed", "id", c.ID, "error", derr)
			}
		}
		return
	}

	b.log.Info("created edge", "from", from, "to", to, "duration", d)
	c.Pending = false
	switch _, err := s.Connect(c); {
	case stderrors.Is(err, surface.ErrUnknownConnector):
		b.log.Debug("connector removed while pending", "id", c.ID)
	case err != nil:
		b.log.Warn("settle connector failed", "id", c.ID, "error", err)
	}
}

// DeleteEdge asks for confirmation and removes a dep connector on success.
func (b *Bridge) DeleteEdge(ctx context.Context, s surface.Surface, c surface.Connector) {
	if !c.Deletable || c.Type != graph.EdgeDep {
		return
	}

	ok, err := b.cfg.Confirmer.Confirm(ctx, ConfirmMessage(c.From, c.To))
	if err != nil {
		b.log.Warn("confirmation failed", "from", c.From, "to", c.To, "error", err)
		return
	}
	if !ok {
		b.log.Debug("delete declined", "from", c.From, "to", c.To)
		return
	}

	from, to := b.identity(c.From), b.identity(c.To)
	start := time.Now()
	err = b.cfg.API.DeleteEdge(ctx, from, to)
	d := time.Since(start)
	b.record(ctx, Mutation{Op: OpDelete, From: c.From, To: c.To, Err: err, Duration: d})

	if err != nil {
		b.log.Warn("delete edge failed", "from", from, "to", to, "error", err)
		b.cfg.Notifier.Notify(ctx, errors.UserMessage(err))
		return
	}

	b.log.Info("deleted edge", "from", from, "to", to, "duration", d)
	if err := s.Disconnect(c.ID); err != nil {
		b.log.Warn("disconnect failed", "id", c.ID, "error", err)
	}
}

// ConfirmMessage is the question asked before deleting an edge.
func ConfirmMessage(from, to string) string {
	return fmt.Sprintf("delete connection: %s -> %s?", from, to)
}

func (b *Bridge) identity(name string) string {
	if id, ok := b.ids[name]; ok {
		return id
	}
	return name
}

func (b *Bridge) record(ctx context.Context, m Mutation) {
	observability.Bridge().OnEdgeMutation(ctx, m.Op, m.Duration, m.Err)
	if m.Err == nil && b.cfg.OnMutation != nil {
		b.cfg.OnMutation(ctx, m)
	}
}
