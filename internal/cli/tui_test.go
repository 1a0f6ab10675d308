package cli

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
)

type recordingAPI struct {
	mu    sync.Mutex
	calls []string
}

func (a *recordingAPI) PutEdge(_ context.Context, from, to string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "PUT "+from+" "+to)
	return nil
}

func (a *recordingAPI) DeleteEdge(_ context.Context, from, to string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "DELETE "+from+" "+to)
	return nil
}

func (a *recordingAPI) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func newTestEditor(t *testing.T, edit bool) (editorModel, *recordingAPI, chan tea.Msg) {
	t.Helper()
	d, err := graph.UnmarshalDescription([]byte(testGraph))
	if err != nil {
		t.Fatal(err)
	}
	r, err := layout.Compute(d, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}

	api := &recordingAPI{}
	m, prompter, err := newEditorModel(context.Background(), editorConfig{
		Title:       "nightly",
		Description: d,
		Layout:      r,
		API:         api,
		Edit:        edit,
		Logger:      log.New(&strings.Builder{}),
	})
	if err != nil {
		t.Fatal(err)
	}
	msgs := make(chan tea.Msg, 64)
	prompter.send = func(msg tea.Msg) { msgs <- msg }
	return m, api, msgs
}

func press(t *testing.T, m editorModel, keys ...string) (editorModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var key tea.KeyMsg
		switch k {
		case "tab":
			key = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			key = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			key = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(key)
		m = next.(editorModel)
	}
	return m, cmd
}

func update(m editorModel, msg tea.Msg) editorModel {
	next, _ := m.Update(msg)
	return next.(editorModel)
}

func TestEditorListsCanvas(t *testing.T) {
	m, _, _ := newTestEditor(t, true)

	if len(m.nodes) != 3 || m.nodes[0].Name != "A" {
		t.Fatalf("nodes = %+v", m.nodes)
	}
	if len(m.conns) != 2 {
		t.Fatalf("connectors = %+v", m.conns)
	}

	view := m.View()
	for _, want := range []string{"nightly", "Jobs", "Connections", "copy"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEditorCreateEdge(t *testing.T) {
	m, api, _ := newTestEditor(t, true)

	m, cmd := press(t, m, "j", "c")
	if cmd != nil || m.source != "B" {
		t.Fatalf("first c should pick B as source, got %q", m.source)
	}
	m, cmd = press(t, m, "j", "c")
	if cmd == nil {
		t.Fatal("second c should start a drag")
	}
	if m.busy != 1 {
		t.Errorf("busy = %d, want 1", m.busy)
	}

	m = update(m, cmd())
	if got := api.snapshot(); len(got) != 1 || got[0] != "PUT B C" {
		t.Fatalf("calls = %v", got)
	}
	if m.busy != 0 || m.statusErr {
		t.Errorf("busy = %d, status = %q", m.busy, m.status)
	}
	if len(m.conns) != 3 {
		t.Fatalf("connectors = %+v", m.conns)
	}
	last := m.conns[2]
	if last.From != "B" || last.To != "C" || last.Pending {
		t.Errorf("new connector = %+v", last)
	}
}

func TestEditorEscCancelsSource(t *testing.T) {
	m, api, _ := newTestEditor(t, true)
	m, _ = press(t, m, "c", "esc", "j", "c")
	if m.source != "B" {
		t.Errorf("source = %q, want B after esc", m.source)
	}
	if len(api.snapshot()) != 0 {
		t.Errorf("unexpected calls %v", api.snapshot())
	}
}

func TestEditorSourceAgainCancels(t *testing.T) {
	m, api, _ := newTestEditor(t, true)
	m, cmd := press(t, m, "j", "c", "c")
	if cmd != nil {
		t.Fatal("c on the source should not drag")
	}
	if m.source != "" || m.statusErr {
		t.Errorf("source = %q, status = %q", m.source, m.status)
	}
	if len(api.snapshot()) != 0 || len(m.conns) != 2 {
		t.Errorf("calls = %v, connectors = %d", api.snapshot(), len(m.conns))
	}
}

func TestEditorDeleteAsksFirst(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"y", []string{"DELETE A B"}},
		{"n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, api, msgs := newTestEditor(t, true)

			m, cmd := press(t, m, "tab", "d")
			if cmd == nil {
				t.Fatal("d on a dep connector should start a click")
			}
			done := make(chan tea.Msg, 1)
			go func() { done <- cmd() }()

			var prompt confirmMsg
		wait:
			for {
				select {
				case msg := <-msgs:
					if c, ok := msg.(confirmMsg); ok {
						prompt = c
						break wait
					}
				case <-time.After(2 * time.Second):
					t.Fatal("no confirmation prompt")
				}
			}
			if prompt.text != "delete connection: A -> B?" {
				t.Errorf("prompt = %q", prompt.text)
			}

			m = update(m, prompt)
			if !strings.Contains(m.View(), "[y/n]") {
				t.Error("prompt not shown")
			}
			m, _ = press(t, m, tt.key)
			if len(m.prompts) != 0 {
				t.Error("prompt still open")
			}

			select {
			case msg := <-done:
				m = update(m, msg)
			case <-time.After(2 * time.Second):
				t.Fatal("click did not finish")
			}
			got := api.snapshot()
			if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEditorQueuesPrompts(t *testing.T) {
	m, _, _ := newTestEditor(t, true)
	first, second := make(chan bool, 1), make(chan bool, 1)
	m = update(m, confirmMsg{text: "delete connection: A -> B?", reply: first})
	m = update(m, confirmMsg{text: "delete connection: B -> C?", reply: second})

	if !strings.Contains(m.View(), "A -> B?") {
		t.Fatal("oldest prompt not shown first")
	}
	m, _ = press(t, m, "y")
	if !strings.Contains(m.View(), "B -> C?") {
		t.Fatal("second prompt not shown after the first answer")
	}
	m, _ = press(t, m, "n")
	if len(m.prompts) != 0 {
		t.Errorf("prompts = %d, want 0", len(m.prompts))
	}

	for i, tc := range []struct {
		reply chan bool
		want  bool
	}{{first, true}, {second, false}} {
		select {
		case got := <-tc.reply:
			if got != tc.want {
				t.Errorf("answer %d = %v, want %v", i, got, tc.want)
			}
		default:
			t.Errorf("prompt %d never answered", i)
		}
	}
}

func TestEditorCopyConnectorNotDeletable(t *testing.T) {
	m, _, _ := newTestEditor(t, true)
	m, cmd := press(t, m, "tab", "j", "d")
	if cmd != nil {
		t.Fatal("copy connector should not be clickable")
	}
	if !m.statusErr || !strings.Contains(m.status, "cannot be deleted") {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorReadOnly(t *testing.T) {
	m, api, _ := newTestEditor(t, false)
	m, cmd := press(t, m, "c")
	if cmd != nil {
		t.Fatal("read-only editor started a gesture")
	}
	if !m.statusErr || !strings.Contains(m.status, "read-only") {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "read-only") {
		t.Error("view should show read-only mode")
	}
	if len(api.snapshot()) != 0 {
		t.Errorf("calls = %v", api.snapshot())
	}
}

func TestEditorQuit(t *testing.T) {
	m, _, _ := newTestEditor(t, true)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not return tea.Quit")
	}
}
