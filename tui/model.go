package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/njyeung/megacli/backend"
	"github.com/njyeung/megacli/player"
	"github.com/njyeung/megacli/screen"
)

// frameInterval is how often the background is polled for a new frame
const frameInterval = 16 * time.Millisecond

// Messages
type (
	tickMsg     time.Time
	responseMsg struct {
		provider backend.Provider
		seq      uint64
		text     string
		err      error
	}
)

// Background is the video drawn behind the chat
type Background interface {
	Update()
	Render(buf *screen.Buffer, area screen.Rect)
	Stats() player.Stats
	Err() error
}

// History persists conversations per provider
type History interface {
	Messages(p backend.Provider) []backend.Message
	Append(p backend.Provider, role, content string) error
	Clear(p backend.Provider) error
}

type chatMessage struct {
	role    string
	content string
	system  bool
}

type Config struct {
	Provider   backend.Provider
	Background Background // nil runs without a video
	History    History    // nil keeps conversations in memory only
	NewClient  func(backend.Provider) backend.Client
	Width      int
	Height     int
	Debug      bool
	Logger     *slog.Logger
}

// Model is the Bubble Tea model
type Model struct {
	ctx      context.Context
	provider backend.Provider
	bg       Background
	history  History
	clients  map[backend.Provider]backend.Client

	newClient func(backend.Provider) backend.Client
	log       *slog.Logger

	messages map[backend.Provider][]chatMessage
	input    textinput.Model
	scroll   int
	waiting  bool
	showHelp bool
	// seq identifies the request in flight; replies with another seq are stale
	seq uint64

	width   int
	height  int
	spinner spinner.Model
	debug   bool
}

// NewModel creates the chat model and loads every provider's saved history
func NewModel(ctx context.Context, cfg Config) Model {
	if cfg.NewClient == nil {
		cfg.NewClient = func(p backend.Provider) backend.Client {
			return backend.NewClient(p)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle()

	// drawn into the cell buffer by drawInput, never through View
	ti := textinput.New()
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	m := Model{
		ctx:       ctx,
		provider:  cfg.Provider,
		bg:        cfg.Background,
		history:   cfg.History,
		clients:   make(map[backend.Provider]backend.Client),
		newClient: cfg.NewClient,
		log:       cfg.Logger.With("component", "tui"),
		messages:  make(map[backend.Provider][]chatMessage),
		width:     cfg.Width,
		height:    cfg.Height,
		input:     ti,
		spinner:   s,
		debug:     cfg.Debug,
	}

	if m.history != nil {
		for _, p := range backend.Providers {
			for _, msg := range m.history.Messages(p) {
				m.messages[p] = append(m.messages[p], chatMessage{role: msg.Role, content: msg.Content})
			}
		}
	}

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Provider returns the provider currently chatted with
func (m Model) Provider() backend.Provider {
	return m.provider
}

func (m Model) current() []chatMessage {
	return m.messages[m.provider]
}

func (m *Model) addSystemMessage(content string) {
	m.messages[m.provider] = append(m.messages[m.provider], chatMessage{
		role:    backend.RoleAssistant,
		content: content,
		system:  true,
	})
}

func (m *Model) client(p backend.Provider) backend.Client {
	c, ok := m.clients[p]
	if !ok {
		c = m.newClient(p)
		m.clients[p] = c
	}
	return c
}

// send asks the current provider to answer the conversation so far
func (m Model) send() tea.Cmd {
	var conv []backend.Message
	for _, msg := range m.current() {
		if msg.system {
			continue
		}
		conv = append(conv, backend.Message{Role: msg.role, Content: msg.content})
	}

	ctx := m.ctx
	client := m.client(m.provider)
	provider, seq := m.provider, m.seq

	return func() tea.Msg {
		text, err := client.Send(ctx, conv)
		return responseMsg{provider: provider, seq: seq, text: text, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.bg != nil {
			m.bg.Update()
		}
		return m, tick()

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case responseMsg:
		return m.updateResponse(msg)
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Clear):
		m.messages[m.provider] = nil
		m.scroll = 0
		if m.history != nil {
			if err := m.history.Clear(m.provider); err != nil {
				m.log.Error("failed to clear history", "provider", m.provider, "error", err)
			}
		}

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Switch):
		// drop whatever is in flight for the old provider
		m.seq++
		m.waiting = false
		m.provider = m.provider.Next()
		m.scroll = 0
		m.addSystemMessage(fmt.Sprintf("Switched to %s", m.provider.Name()))

	case key.Matches(msg, keys.Send):
		text := m.input.Value()
		if text == "" || m.waiting {
			return m, nil
		}
		m.input.Reset()
		m.messages[m.provider] = append(m.messages[m.provider], chatMessage{role: backend.RoleUser, content: text})
		if m.history != nil {
			if err := m.history.Append(m.provider, backend.RoleUser, text); err != nil {
				m.log.Error("failed to save message", "provider", m.provider, "error", err)
			}
		}
		m.waiting = true
		m.seq++
		return m, tea.Batch(m.send(), m.spinner.Tick)

	case key.Matches(msg, keys.Up):
		m.scroll = max(m.scroll-1, 0)

	case key.Matches(msg, keys.Down):
		if m.scroll < len(m.current())-1 {
			m.scroll++
		}

	case key.Matches(msg, keys.PageUp):
		m.scroll = max(m.scroll-10, 0)

	case key.Matches(msg, keys.PageDown):
		m.scroll = max(min(m.scroll+10, len(m.current())-1), 0)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateResponse(msg responseMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq || msg.provider != m.provider {
		m.log.Debug("discarding stale response", "provider", msg.provider, "seq", msg.seq)
		return m, nil
	}
	m.waiting = false

	if msg.err != nil {
		m.log.Warn("request failed", "provider", msg.provider, "error", msg.err)
		m.addSystemMessage(fmt.Sprintf("Error: %v", msg.err))
		return m, nil
	}

	if m.history != nil {
		if err := m.history.Append(m.provider, backend.RoleAssistant, msg.text); err != nil {
			m.log.Error("failed to save message", "provider", m.provider, "error", err)
		}
	}
	m.messages[m.provider] = append(m.messages[m.provider], chatMessage{role: backend.RoleAssistant, content: msg.text})
	m.scroll = max(len(m.current())-1, 0)

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return m.viewLoading()
	}

	buf := screen.New(m.width, m.height)
	if m.bg != nil {
		m.bg.Render(buf, buf.Area())
	}
	m.drawChat(buf)
	return buf.Render()
}
