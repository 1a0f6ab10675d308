package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/depview/pkg/bridge"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/surface"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	panelActiveStyle  = panelStyle.BorderForeground(colorCyan)
)

const (
	panelNodes = iota
	panelConnectors
)

// =============================================================================
// Messages
// =============================================================================

// canvasMsg reports that the canvas changed.
type canvasMsg struct{}

// confirmMsg asks the user a question; the answer goes to reply.
type confirmMsg struct {
	text  string
	reply chan<- bool
}

// alertMsg shows a bridge notification in the status line.
type alertMsg struct{ text string }

// gestureDoneMsg ends a create or delete gesture.
type gestureDoneMsg struct{ err error }

// =============================================================================
// Prompter - bridge Confirmer and Notifier for the terminal
// =============================================================================

// tuiPrompter routes bridge questions and notifications into the bubbletea
// event loop. send is set once the program exists.
type tuiPrompter struct {
	send func(tea.Msg)
}

// Confirm blocks until the user answers y or n.
func (p *tuiPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	p.send(confirmMsg{text: message, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Notify shows message in the status line.
func (p *tuiPrompter) Notify(_ context.Context, message string) {
	p.send(alertMsg{text: message})
}

// =============================================================================
// editorModel - terminal surface for the interaction bridge
// =============================================================================

// editorConfig is what an editor session needs.
type editorConfig struct {
	Title            string
	Description      *graph.Description
	Layout           *layout.Result
	API              bridge.EdgeAPI
	Edit             bool
	RetractOnFailure bool
	Labeler          *graph.Labeler
	Logger           *log.Logger
	OnMutation       func(ctx context.Context, m bridge.Mutation)
}

// editorModel lists jobs and connectors of a canvas and turns key presses
// into drag and click gestures on it.
type editorModel struct {
	ctx    context.Context
	canvas *surface.Canvas
	layout *layout.Result
	title  string
	edit   bool

	nodes []surface.NodeSpec
	conns []surface.Connector

	panel      int
	nodeCursor int
	connCursor int
	source     string // chosen with c, waiting for a target

	prompts   []confirmMsg // oldest first; each gets exactly one answer
	status    string
	statusErr bool
	busy      int
}

// newEditorModel draws the graph on a fresh canvas through a bridge. The
// returned prompter must get its send func before the first gesture.
func newEditorModel(ctx context.Context, cfg editorConfig) (editorModel, *tuiPrompter, error) {
	prompter := &tuiPrompter{send: func(tea.Msg) {}}
	canvas := surface.NewCanvas()

	b, err := bridge.New(bridge.Config{
		Description:      cfg.Description,
		Layout:           cfg.Layout,
		Edit:             cfg.Edit,
		RetractOnFailure: cfg.RetractOnFailure,
		API:              cfg.API,
		Confirmer:        prompter,
		Notifier:         prompter,
		Labeler:          cfg.Labeler,
		Logger:           cfg.Logger,
		OnMutation:       cfg.OnMutation,
	})
	if err != nil {
		return editorModel{}, nil, err
	}
	if err := b.Attach(canvas); err != nil {
		return editorModel{}, nil, err
	}
	canvas.Subscribe(func(surface.Event) { prompter.send(canvasMsg{}) })

	m := editorModel{
		ctx:    ctx,
		canvas: canvas,
		layout: cfg.Layout,
		title:  cfg.Title,
		edit:   cfg.Edit,
	}
	m.refresh()
	return m, prompter, nil
}

func (m *editorModel) refresh() {
	m.nodes = m.canvas.Nodes()
	m.conns = m.canvas.Connectors()
	m.nodeCursor = clamp(m.nodeCursor, len(m.nodes))
	m.connCursor = clamp(m.connCursor, len(m.conns))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m editorModel) Init() tea.Cmd {
	return nil
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case canvasMsg:
		m.refresh()
	case confirmMsg:
		m.prompts = append(slices.Clip(m.prompts), msg)
	case alertMsg:
		m.setStatus(msg.text, true)
	case gestureDoneMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else if !m.statusErr {
			m.setStatus("", false)
		}
		m.refresh()
	case tea.KeyMsg:
		if len(m.prompts) > 0 {
			return m.answer(msg.String())
		}
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m editorModel) answer(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.prompts[0].reply <- true
	case "n", "N", "esc", "ctrl+c", "q":
		m.prompts[0].reply <- false
	default:
		return m, nil
	}
	m.prompts = m.prompts[1:]
	return m, nil
}

func (m editorModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.panel = (m.panel + 1) % 2
	case "up", "k":
		if m.panel == panelNodes {
			m.nodeCursor = clamp(m.nodeCursor-1, len(m.nodes))
		} else {
			m.connCursor = clamp(m.connCursor-1, len(m.conns))
		}
	case "down", "j":
		if m.panel == panelNodes {
			m.nodeCursor = clamp(m.nodeCursor+1, len(m.nodes))
		} else {
			m.connCursor = clamp(m.connCursor+1, len(m.conns))
		}
	case "esc":
		m.source = ""
		m.setStatus("", false)
	case "c":
		return m.connect()
	case "d":
		return m.remove()
	}
	return m, nil
}

// connect picks the source on the first press and drags to the target on
// the second. Pressing c on the source again cancels.
func (m editorModel) connect() (tea.Model, tea.Cmd) {
	if !m.edit {
		m.setStatus(surface.ErrReadOnly.Error(), true)
		return m, nil
	}
	if m.panel != panelNodes || len(m.nodes) == 0 {
		m.setStatus("select a job in the jobs panel", true)
		return m, nil
	}
	name := m.nodes[m.nodeCursor].Name
	if m.source == "" {
		m.source = name
		m.setStatus(fmt.Sprintf("source %s: move to the target and press c", name), false)
		return m, nil
	}
	if name == m.source {
		m.source = ""
		m.setStatus("connection cancelled", false)
		return m, nil
	}

	from := m.source
	m.source = ""
	m.busy++
	m.setStatus(fmt.Sprintf("creating %s -> %s", from, name), false)
	ctx, canvas := m.ctx, m.canvas
	return m, func() tea.Msg {
		_, err := canvas.Drag(ctx, from, name)
		return gestureDoneMsg{err: err}
	}
}

// remove clicks the selected connector; the bridge asks for confirmation.
func (m editorModel) remove() (tea.Model, tea.Cmd) {
	if m.panel != panelConnectors || len(m.conns) == 0 {
		m.setStatus("select a connection in the connections panel", true)
		return m, nil
	}
	conn := m.conns[m.connCursor]
	if !conn.Deletable {
		m.setStatus(fmt.Sprintf("%s cannot be deleted", conn), true)
		return m, nil
	}
	m.busy++
	m.setStatus("", false)
	ctx, canvas := m.ctx, m.canvas
	return m, func() tea.Msg {
		return gestureDoneMsg{err: canvas.Click(ctx, conn.ID)}
	}
}

func (m *editorModel) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m editorModel) View() string {
	var b strings.Builder

	mode := StyleSuccess.Render("edit")
	if !m.edit {
		mode = listDimStyle.Render("read-only")
	}
	b.WriteString(StyleTitle.Render(m.title) + "  " + mode)
	b.WriteString("\n\n")

	nodes, conns := panelStyle, panelStyle
	if m.panel == panelNodes {
		nodes = panelActiveStyle
	} else {
		conns = panelActiveStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		nodes.Render(m.nodesView()),
		conns.Render(m.connsView()),
	))
	b.WriteString("\n")

	switch {
	case len(m.prompts) > 0:
		b.WriteString(StyleWarning.Render(m.prompts[0].text + " [y/n]"))
	case m.status != "" && m.statusErr:
		b.WriteString(StyleError.Render(iconError + " " + m.status))
	case m.status != "":
		b.WriteString(listDimStyle.Render(m.status))
	case m.busy > 0:
		b.WriteString(listDimStyle.Render("waiting for backend..."))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("tab switch panel  ↑/↓ navigate  c connect  d delete  esc cancel  q quit"))

	return b.String()
}

func (m editorModel) nodesView() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Jobs") + "\n")
	for i, n := range m.nodes {
		cursor := "  "
		if m.panel == panelNodes && i == m.nodeCursor {
			cursor = "▸ "
		}
		where := ""
		if p, ok := m.layout.Position(n.Name); ok {
			where = fmt.Sprintf("c%d L%d", p.Cluster, p.Level)
		}
		line := fmt.Sprintf("%s%-24s %s", cursor, n.Label, listDimStyle.Render(where))
		switch {
		case n.Name == m.source:
			b.WriteString(StyleSuccess.Render(line))
		case m.panel == panelNodes && i == m.nodeCursor:
			b.WriteString(listSelectedStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m editorModel) connsView() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Connections") + "\n")
	if len(m.conns) == 0 {
		b.WriteString(listDimStyle.Render("  none") + "\n")
	}
	for i, c := range m.conns {
		cursor := "  "
		if m.panel == panelConnectors && i == m.connCursor {
			cursor = "▸ "
		}
		tag := string(c.Type)
		if c.Pending {
			tag += " (pending)"
		}
		line := cursor + connectorStyle(c).Render(fmt.Sprintf("%s %s %s", c.From, iconArrow, c.To)) + " " + listDimStyle.Render(tag)
		b.WriteString(line + "\n")
	}
	return b.String()
}

// runEditor runs the editor until the user quits.
func runEditor(m editorModel, prompter *tuiPrompter) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	prompter.send = p.Send
	if _, err := p.Run(); err != nil && m.ctx.Err() == nil {
		return err
	}
	return nil
}
