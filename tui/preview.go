package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/njyeung/megacli/screen"
)

// PreviewModel plays only the background, full screen
type PreviewModel struct {
	bg        Background
	width     int
	height    int
	showStats bool
}

func NewPreviewModel(bg Background, width, height int) PreviewModel {
	return PreviewModel{
		bg:        bg,
		width:     width,
		height:    height,
		showStats: true,
	}
}

func (m PreviewModel) Init() tea.Cmd {
	return tick()
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.showStats = !m.showStats
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.bg.Update()
		return m, tick()
	}

	return m, nil
}

func (m PreviewModel) View() string {
	if err := m.bg.Err(); err != nil {
		return viewError(err)
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	stats := m.bg.Stats()
	if stats.Published == 0 {
		return renderSplash(m.width, m.height, "decoding...")
	}

	buf := screen.New(m.width, m.height)
	m.bg.Render(buf, buf.Area())

	if m.showStats {
		line := fmt.Sprintf(" frames %d  restarts %d  faults %d  (s: stats, q: quit) ",
			stats.Published, stats.Restarts, stats.Faults)
		buf.SetString(0, m.height-1, line, footerStyle, m.width)
	}

	return buf.Render()
}
