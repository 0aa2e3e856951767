package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

func (m Model) viewLoading() string {
	return fmt.Sprintf("\n\n   %s Starting MEGA-CLI...\n\n", m.spinner.View())
}

var logo = []string{
	" __  __ _____ ____    _       ____ _     ___ ",
	"|  \\/  | ____/ ___|  / \\     / ___| |   |_ _|",
	"| |\\/| |  _|| |  _  / _ \\   | |   | |    | | ",
	"| |  | | |__| |_| |/ ___ \\  | |___| |___ | | ",
	"|_|  |_|_____\\____/_/   \\_\\  \\____|_____|___|",
}

// renderSplash centers the logo in a width x height block, used by the
// preview when no frame has been decoded yet
func renderSplash(width, height int, status string) string {
	block := append(append([]string{}, logo...), "", status)
	startRow := (height - len(block)) / 2

	var b strings.Builder
	for y := range height {
		var line string
		switch {
		case y >= startRow && y < startRow+len(block):
			text := ansi.Truncate(block[y-startRow], width, "")
			pad := max(width-ansi.StringWidth(text), 0)
			left := pad / 2
			line = strings.Repeat(" ", left) + titleStyle.Render(text) + strings.Repeat(" ", pad-left)
		default:
			line = strings.Repeat(" ", width)
		}
		b.WriteString(line)
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func viewError(err error) string {
	return fmt.Sprintf("\n\n   %s\n\n   Press q to quit.\n", errorStyle.Render(err.Error()))
}
