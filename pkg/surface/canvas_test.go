package surface

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matzehuels/depview/pkg/graph"
)

func placeAll(t *testing.T, c *Canvas, connectable bool, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := c.PlaceNode(NodeSpec{Name: n, Token: n, Connectable: connectable}); err != nil {
			t.Fatalf("PlaceNode(%s): %v", n, err)
		}
	}
}

func TestCanvasConnectAndDisconnect(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, false, "a", "b")

	conn, err := c.Connect(Connector{From: "a", To: "b", Type: graph.EdgeDep, Color: ColorDep})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.ID == "" {
		t.Fatal("Connect did not assign an ID")
	}
	if got := c.Find("a", "b"); len(got) != 1 {
		t.Fatalf("Find = %d connectors, want 1", len(got))
	}

	if err := c.Disconnect(conn.ID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(c.Connectors()) != 0 {
		t.Error("connector still present after Disconnect")
	}
	if err := c.Disconnect(conn.ID); !errors.Is(err, ErrUnknownConnector) {
		t.Errorf("second Disconnect err = %v, want ErrUnknownConnector", err)
	}
}

func TestCanvasConnectUnknownNode(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, false, "a")
	if _, err := c.Connect(Connector{From: "a", To: "zz"}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("err = %v, want ErrUnknownNode", err)
	}
}

func TestCanvasConnectUpdatesInPlace(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, true, "a", "b")

	conn, _ := c.Connect(Connector{From: "a", To: "b", Pending: true})
	conn.Pending = false
	if _, err := c.Connect(conn); err != nil {
		t.Fatalf("Connect update: %v", err)
	}
	all := c.Connectors()
	if len(all) != 1 {
		t.Fatalf("Connectors = %d, want 1", len(all))
	}
	if all[0].Pending {
		t.Error("connector still pending after update")
	}
}

func TestCanvasConnectDisconnectedID(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, true, "a", "b")

	conn, _ := c.Connect(Connector{From: "a", To: "b", Pending: true})
	if err := c.Disconnect(conn.ID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	conn.Pending = false
	if _, err := c.Connect(conn); !errors.Is(err, ErrUnknownConnector) {
		t.Errorf("err = %v, want ErrUnknownConnector", err)
	}
	if _, err := c.Connect(Connector{ID: "c99", From: "a", To: "b"}); !errors.Is(err, ErrUnknownConnector) {
		t.Errorf("never-drawn ID err = %v, want ErrUnknownConnector", err)
	}
	if n := len(c.Connectors()); n != 0 {
		t.Errorf("Connectors = %d, want 0", n)
	}
}

func TestCanvasDragReadOnly(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, false, "a", "b")

	if _, err := c.Drag(context.Background(), "a", "b"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Drag err = %v, want ErrReadOnly", err)
	}
	if len(c.Connectors()) != 0 {
		t.Error("read-only drag drew a connector")
	}
	if c.Editable() {
		t.Error("canvas without handlers reports editable")
	}
}

func TestCanvasDragCallsHandlerWithOptimisticConnector(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, true, "a", "b")

	var seen []Connector
	c.OnCreateGesture(func(ctx context.Context, conn Connector) {
		// The connector must already be drawn when the handler runs.
		if _, ok := c.Connector(conn.ID); !ok {
			t.Error("handler ran before connector was drawn")
		}
		seen = append(seen, conn)
	})

	conn, err := c.Drag(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(seen))
	}
	if conn.Color != ColorNewDep || !conn.Pending || !conn.Deletable || conn.Type != graph.EdgeDep {
		t.Errorf("optimistic connector = %+v", conn)
	}

	// Duplicate gestures draw a second connector.
	if _, err := c.Drag(context.Background(), "a", "b"); err != nil {
		t.Fatalf("second Drag: %v", err)
	}
	if got := len(c.Find("a", "b")); got != 2 {
		t.Errorf("connectors a->b = %d, want 2", got)
	}
}

func TestCanvasClick(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, true, "a", "b", "c")

	dep, _ := c.Connect(Connector{From: "a", To: "b", Type: graph.EdgeDep, Deletable: true})
	cp, _ := c.Connect(Connector{From: "a", To: "c", Type: graph.EdgeCopy})

	// No handler yet: nothing reacts.
	if err := c.Click(context.Background(), dep.ID); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Click without handler err = %v, want ErrReadOnly", err)
	}

	var clicked []string
	c.OnDeleteGesture(func(ctx context.Context, conn Connector) {
		clicked = append(clicked, conn.ID)
	})

	if err := c.Click(context.Background(), dep.ID); err != nil {
		t.Errorf("Click dep: %v", err)
	}
	if err := c.Click(context.Background(), cp.ID); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Click copy err = %v, want ErrReadOnly", err)
	}
	if err := c.Click(context.Background(), "missing"); !errors.Is(err, ErrUnknownConnector) {
		t.Errorf("Click missing err = %v, want ErrUnknownConnector", err)
	}
	if len(clicked) != 1 || clicked[0] != dep.ID {
		t.Errorf("clicked = %v, want [%s]", clicked, dep.ID)
	}
}

func TestCanvasSubscribe(t *testing.T) {
	c := NewCanvas()
	var mu sync.Mutex
	var kinds []EventKind
	c.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
	})

	placeAll(t, c, false, "a", "b")
	conn, _ := c.Connect(Connector{From: "a", To: "b"})
	_ = c.Disconnect(conn.ID)

	want := []EventKind{EventPlace, EventPlace, EventConnect, EventDisconnect}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestCanvasConcurrentConnect(t *testing.T) {
	c := NewCanvas()
	placeAll(t, c, true, "a", "b")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Connect(Connector{From: "a", To: "b"})
		}()
	}
	wg.Wait()

	ids := make(map[string]bool)
	for _, conn := range c.Connectors() {
		ids[conn.ID] = true
	}
	if len(ids) != 50 {
		t.Errorf("unique connectors = %d, want 50", len(ids))
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(graph.EdgeDep) != ColorDep {
		t.Error("dep color")
	}
	if ColorFor(graph.EdgeCopy) != ColorCopy {
		t.Error("copy color")
	}
}
