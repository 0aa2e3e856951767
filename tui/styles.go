package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/njyeung/megacli/screen"
)

// styles for the fallback views, which render plain strings
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// cell styles for the chat, which draws into a screen.Buffer
var (
	userStyle    = screen.Style{FG: lipgloss.Color("42")} // green
	systemStyle  = screen.Style{FG: lipgloss.Color("245")}
	panelStyle   = screen.Style{FG: lipgloss.Color("255")}
	inputStyle   = screen.Style{FG: lipgloss.Color("51")} // cyan
	cursorStyle  = screen.Style{FG: lipgloss.Color("226"), Bold: true}
	footerStyle  = screen.Style{FG: lipgloss.Color("241")}
	statusStyle  = screen.Style{FG: lipgloss.Color("196")}
	welcomeStyle = screen.Style{FG: lipgloss.Color("255"), Bold: true}
)

func providerStyle(c lipgloss.Color) screen.Style {
	return screen.Style{FG: c}
}

func bold(st screen.Style) screen.Style {
	st.Bold = true
	return st
}
