package surface

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/matzehuels/depview/pkg/graph"
)

// EventKind names a change on a canvas.
type EventKind string

const (
	EventPlace      EventKind = "place"
	EventConnect    EventKind = "connect"
	EventDisconnect EventKind = "disconnect"
)

// Event is emitted to subscribers after every change.
type Event struct {
	Kind      EventKind  `json:"kind"`
	Node      *NodeSpec  `json:"node,omitempty"`
	Connector *Connector `json:"connector,omitempty"`
}

// Canvas is an in-memory [Surface]. It is safe for concurrent use.
// Handlers and subscribers are called without the canvas lock held.
type Canvas struct {
	mu        sync.Mutex
	nodes     map[string]NodeSpec
	nodeOrder []string
	conns     map[string]Connector
	connOrder []string
	nextID    int

	onCreate CreateHandler
	onDelete DeleteHandler
	subs     []func(Event)
}

// NewCanvas creates an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{
		nodes: make(map[string]NodeSpec),
		conns: make(map[string]Connector),
	}
}

// Subscribe registers fn to receive every subsequent event.
func (c *Canvas) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// PlaceNode adds or moves a node box.
func (c *Canvas) PlaceNode(n NodeSpec) error {
	if n.Name == "" {
		return fmt.Errorf("place node: %w", ErrUnknownNode)
	}
	c.mu.Lock()
	if _, ok := c.nodes[n.Name]; !ok {
		c.nodeOrder = append(c.nodeOrder, n.Name)
	}
	c.nodes[n.Name] = n
	subs := c.subs
	c.mu.Unlock()

	c.emit(subs, Event{Kind: EventPlace, Node: &n})
	return nil
}

// Connect draws a connector between two placed nodes. An empty ID is
// assigned; an existing ID is updated in place. A non-empty ID that was
// never drawn, or has since been disconnected, is rejected.
func (c *Canvas) Connect(conn Connector) (Connector, error) {
	c.mu.Lock()
	if _, ok := c.conns[conn.ID]; conn.ID != "" && !ok {
		c.mu.Unlock()
		return Connector{}, fmt.Errorf("connect %s: %w", conn.ID, ErrUnknownConnector)
	}
	if _, ok := c.nodes[conn.From]; !ok {
		c.mu.Unlock()
		return Connector{}, fmt.Errorf("connect %s: %w %q", conn, ErrUnknownNode, conn.From)
	}
	if _, ok := c.nodes[conn.To]; !ok {
		c.mu.Unlock()
		return Connector{}, fmt.Errorf("connect %s: %w %q", conn, ErrUnknownNode, conn.To)
	}
	if conn.ID == "" {
		c.nextID++
		conn.ID = "c" + strconv.Itoa(c.nextID)
		c.connOrder = append(c.connOrder, conn.ID)
	}
	c.conns[conn.ID] = conn
	subs := c.subs
	c.mu.Unlock()

	c.emit(subs, Event{Kind: EventConnect, Connector: &conn})
	return conn, nil
}

// Disconnect removes a connector.
func (c *Canvas) Disconnect(id string) error {
	c.mu.Lock()
	conn, ok := c.conns[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("disconnect %s: %w", id, ErrUnknownConnector)
	}
	delete(c.conns, id)
	c.connOrder = slices.DeleteFunc(c.connOrder, func(s string) bool { return s == id })
	subs := c.subs
	c.mu.Unlock()

	c.emit(subs, Event{Kind: EventDisconnect, Connector: &conn})
	return nil
}

// OnCreateGesture registers the drag-to-connect handler.
func (c *Canvas) OnCreateGesture(h CreateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCreate = h
}

// OnDeleteGesture registers the click-to-delete handler.
func (c *Canvas) OnDeleteGesture(h DeleteHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDelete = h
}

// Drag simulates a drag-to-connect gesture from one node to another. The new
// connector is drawn before the create handler runs, so the handler sees the
// optimistic state. Drag returns when the handler returns.
func (c *Canvas) Drag(ctx context.Context, from, to string) (Connector, error) {
	c.mu.Lock()
	src, okFrom := c.nodes[from]
	dst, okTo := c.nodes[to]
	h := c.onCreate
	c.mu.Unlock()

	switch {
	case !okFrom:
		return Connector{}, fmt.Errorf("drag %s: %w", from, ErrUnknownNode)
	case !okTo:
		return Connector{}, fmt.Errorf("drag %s: %w", to, ErrUnknownNode)
	case h == nil || !src.Connectable || !dst.Connectable:
		return Connector{}, ErrReadOnly
	}

	conn, err := c.Connect(Connector{
		From:      from,
		To:        to,
		Type:      graph.EdgeDep,
		Color:     ColorNewDep,
		Deletable: true,
		Pending:   true,
	})
	if err != nil {
		return Connector{}, err
	}
	h(ctx, conn)
	return conn, nil
}

// Click simulates a click on a connector. Only deletable connectors on a
// canvas with a delete handler react. Click returns when the handler returns.
func (c *Canvas) Click(ctx context.Context, id string) error {
	c.mu.Lock()
	conn, ok := c.conns[id]
	h := c.onDelete
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("click %s: %w", id, ErrUnknownConnector)
	}
	if h == nil || !conn.Deletable {
		return ErrReadOnly
	}
	h(ctx, conn)
	return nil
}

// Node returns a placed node.
func (c *Canvas) Node(name string) (NodeSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[name]
	return n, ok
}

// Nodes returns placed nodes in placement order.
func (c *Canvas) Nodes() []NodeSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]NodeSpec, 0, len(c.nodeOrder))
	for _, name := range c.nodeOrder {
		out = append(out, c.nodes[name])
	}
	return out
}

// Connector returns a connector by ID.
func (c *Canvas) Connector(id string) (Connector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[id]
	return conn, ok
}

// Connectors returns drawn connectors in drawing order.
func (c *Canvas) Connectors() []Connector {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Connector, 0, len(c.connOrder))
	for _, id := range c.connOrder {
		out = append(out, c.conns[id])
	}
	return out
}

// Find returns the connectors between from and to, oldest first.
func (c *Canvas) Find(from, to string) []Connector {
	var out []Connector
	for _, conn := range c.Connectors() {
		if conn.From == from && conn.To == to {
			out = append(out, conn)
		}
	}
	return out
}

// Editable reports whether any gesture handler is registered.
func (c *Canvas) Editable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onCreate != nil || c.onDelete != nil
}

func (c *Canvas) emit(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

var _ Surface = (*Canvas)(nil)
