package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/depview/pkg/bridge"
	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/observability"
	"github.com/matzehuels/depview/pkg/surface"
)

const writeWait = 10 * time.Second

// Message types exchanged over /ws.
const (
	MsgHello      = "hello"
	MsgPlace      = "place"
	MsgConnect    = "connect"
	MsgDisconnect = "disconnect"
	MsgConfirm    = "confirm"
	MsgAlert      = "alert"
	MsgError      = "error"

	MsgCreate = "create"
	MsgDelete = "delete"
	MsgAnswer = "answer"
)

// Message is a websocket frame in either direction.
type Message struct {
	Type string `json:"type"`

	// hello
	Edit  bool   `json:"edit,omitempty"`
	Title string `json:"title,omitempty"`

	// place, connect, disconnect
	Node      *surface.NodeSpec  `json:"node,omitempty"`
	Connector *surface.Connector `json:"connector,omitempty"`

	// confirm, alert, error, answer
	ID   string `json:"id,omitempty"`
	Text string `json:"message,omitempty"`
	OK   bool   `json:"ok,omitempty"`
	Code string `json:"code,omitempty"`

	// create
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// session is one browser connection: a canvas, the bridge drawing on it
// and the confirmations it is waiting for.
type session struct {
	conn    *websocket.Conn
	canvas  *surface.Canvas
	logger  *log.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan bool
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &session{
		conn:    conn,
		canvas:  surface.NewCanvas(),
		logger:  s.logger.With("session", uuid.NewString()[:8]),
		timeout: s.cfg.ConfirmTimeout,
		pending: make(map[string]chan bool),
	}

	if err := sess.send(Message{Type: MsgHello, Edit: s.cfg.Edit, Title: s.cfg.Options.Title}); err != nil {
		return
	}
	if err := s.attach(ctx, sess); err != nil {
		sess.logger.Error("session setup failed", "error", err)
		sess.send(Message{Type: MsgError, Text: errors.UserMessage(err), Code: string(errors.GetCode(err))})
		return
	}

	observability.Bridge().OnSession(ctx, s.cfg.Edit, 1)
	defer observability.Bridge().OnSession(ctx, s.cfg.Edit, -1)
	sess.logger.Debug("session opened", "edit", s.cfg.Edit)

	var wg sync.WaitGroup
	defer wg.Wait()
	// cancel runs before wg.Wait so gesture goroutines unblock.
	defer cancel()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.logger.Debug("session read ended", "error", err)
			}
			return
		}
		switch msg.Type {
		case MsgAnswer:
			sess.answer(msg.ID, msg.OK)
		case MsgCreate:
			// A release over the source node ends a click, not a drag.
			if msg.From == msg.To {
				sess.logger.Debug("create ignored", "from", msg.From, "to", msg.To)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := sess.canvas.Drag(ctx, msg.From, msg.To); err != nil {
					sess.Notify(ctx, err.Error())
				}
			}()
		case MsgDelete:
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := sess.canvas.Click(ctx, msg.ID); err != nil {
					sess.logger.Debug("click ignored", "id", msg.ID, "error", err)
				}
			}()
		default:
			sess.logger.Debug("unknown message", "type", msg.Type)
		}
	}
}

// attach loads the graph and draws it on the session canvas.
func (s *Server) attach(ctx context.Context, sess *session) error {
	d, lr, err := s.load(ctx)
	if err != nil {
		return err
	}

	sess.canvas.Subscribe(func(ev surface.Event) {
		sess.send(Message{Type: string(ev.Kind), Node: ev.Node, Connector: ev.Connector})
	})

	b, err := bridge.New(bridge.Config{
		Description:      d,
		Layout:           lr,
		Edit:             s.cfg.Edit,
		RetractOnFailure: s.cfg.RetractOnFailure,
		API:              s.cfg.Backend,
		Confirmer:        sess,
		Notifier:         sess,
		Labeler:          s.cfg.Options.Labeler(),
		Logger:           sess.logger,
		OnMutation: func(ctx context.Context, m bridge.Mutation) {
			if err := s.cfg.Runner.Invalidate(ctx, s.cfg.Backend); err != nil {
				sess.logger.Warn("cache invalidation failed", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	return b.Attach(sess.canvas)
}

func (sess *session) send(msg Message) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteJSON(msg); err != nil {
		sess.logger.Debug("websocket write failed", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

// Confirm asks the browser and waits for its answer. No answer within the
// session timeout counts as a decline.
func (sess *session) Confirm(ctx context.Context, message string) (bool, error) {
	id := uuid.NewString()
	ch := make(chan bool, 1)

	sess.mu.Lock()
	sess.pending[id] = ch
	sess.mu.Unlock()
	defer func() {
		sess.mu.Lock()
		delete(sess.pending, id)
		sess.mu.Unlock()
	}()

	if err := sess.send(Message{Type: MsgConfirm, ID: id, Text: message}); err != nil {
		return false, err
	}

	timer := time.NewTimer(sess.timeout)
	defer timer.Stop()
	select {
	case ok := <-ch:
		return ok, nil
	case <-timer.C:
		return false, errors.New(errors.ErrCodeTimeout, "no answer to %q", message)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (sess *session) answer(id string, ok bool) {
	sess.mu.Lock()
	ch, found := sess.pending[id]
	sess.mu.Unlock()
	if !found {
		sess.logger.Debug("stale answer", "id", id)
		return
	}
	select {
	case ch <- ok:
	default:
	}
}

// Notify shows an alert in the browser.
func (sess *session) Notify(_ context.Context, message string) {
	sess.send(Message{Type: MsgAlert, Text: message})
}

var (
	_ bridge.Confirmer = (*session)(nil)
	_ bridge.Notifier  = (*session)(nil)
)
