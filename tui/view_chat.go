package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/njyeung/megacli/backend"
	"github.com/njyeung/megacli/screen"
)

const footerText = "F1 Help | F2 Switch AI | Ctrl+C Exit | Ctrl+L Clear"

// drawChat lays the panels over whatever is already in buf. Only borders and
// text are written, the rest of each panel shows the background.
func (m Model) drawChat(buf *screen.Buffer) {
	rows := buf.Area().SplitVertical(3, -1, 3, 1)
	header, body, input, footer := rows[0], rows[1], rows[2], rows[3]

	m.drawHeader(buf, header)
	if m.showHelp {
		drawHelp(buf, body)
	} else {
		m.drawMessages(buf, body)
	}
	m.drawInput(buf, input)
	m.drawFooter(buf, footer)
}

func (m Model) drawHeader(buf *screen.Buffer, area screen.Rect) {
	st := providerStyle(m.provider.Color())
	buf.DrawBox(area, "", st)

	in := area.Inner()
	buf.SetString(in.X, in.Y, "MEGA-CLI // "+m.provider.Name(), bold(st), in.Width)
}

func (m Model) drawMessages(buf *screen.Buffer, area screen.Rect) {
	buf.DrawBox(area, "Messages", panelStyle)
	in := area.Inner()
	if in.Empty() {
		return
	}

	msgs := m.current()
	if len(msgs) == 0 {
		drawCentered(buf, in, welcomeText(m.provider), welcomeStyle)
		return
	}

	y := in.Y
	bottom := in.Y + in.Height
	for i := m.scroll; i < len(msgs) && y < bottom; i++ {
		prefix, st := m.speaker(msgs[i])

		lines := wrapLines(prefix+msgs[i].content, in.Width)
		for j, line := range lines {
			if y >= bottom {
				break
			}
			buf.SetString(in.X, y, line, st, in.Width)
			if j == 0 {
				buf.SetString(in.X, y, prefix, bold(st), in.Width)
			}
			y++
		}

		// blank line between messages
		if i < len(msgs)-1 {
			y++
		}
	}
}

func (m Model) speaker(msg chatMessage) (string, screen.Style) {
	switch {
	case msg.system:
		return "* ", systemStyle
	case msg.role == backend.RoleUser:
		return "You: ", userStyle
	default:
		return m.provider.Name() + ": ", providerStyle(m.provider.Color())
	}
}

func welcomeText(p backend.Provider) string {
	return fmt.Sprintf("Welcome to MEGA-CLI!\n\n"+
		"Connected to: %s\n\n"+
		"Type your message and press Enter to start.\n"+
		"The video plays in the background while you chat!\n\n"+
		"Press F1 for help.", p.Name())
}

func (m Model) drawInput(buf *screen.Buffer, area screen.Rect) {
	buf.DrawBox(area, "Input", inputStyle)
	in := area.Inner()
	if in.Empty() {
		return
	}

	if m.waiting {
		text := ansi.Strip(m.spinner.View()) + " Waiting for response..."
		buf.SetString(in.X, in.Y, text, inputStyle, in.Width)
		return
	}

	value := []rune(m.input.Value())
	pos := min(m.input.Position(), len(value))

	before := "> " + string(value[:pos])
	under, after := "_", ""
	if pos < len(value) {
		under, after = string(value[pos]), string(value[pos+1:])
	}

	// keep the cursor visible when the input is wider than the box
	if w := runewidth.StringWidth(before) + runewidth.StringWidth(under); w > in.Width {
		before = runewidth.TruncateLeft(before, w-in.Width, "")
	}

	x := in.X
	for _, part := range []struct {
		text string
		st   screen.Style
	}{{before, inputStyle}, {under, cursorStyle}, {after, inputStyle}} {
		room := in.X + in.Width - x
		if room <= 0 {
			break
		}
		x += buf.SetString(x, in.Y, part.text, part.st, room)
	}
}

func (m Model) drawFooter(buf *screen.Buffer, area screen.Rect) {
	if area.Empty() {
		return
	}

	text := footerText
	if m.debug && m.bg != nil {
		s := m.bg.Stats()
		text += fmt.Sprintf(" | frames %d restarts %d faults %d", s.Published, s.Restarts, s.Faults)
	}
	drawCentered(buf, area, text, footerStyle)

	if m.bg != nil {
		if err := m.bg.Err(); err != nil {
			buf.SetString(area.X, area.Y, "background stopped: "+err.Error(), statusStyle, area.Width)
		}
	}
}

func drawHelp(buf *screen.Buffer, area screen.Rect) {
	buf.DrawBox(area, "Help", inputStyle)
	in := area.Inner()
	if in.Empty() {
		return
	}

	y := in.Y
	for _, line := range wrapLines(helpText(), in.Width) {
		if y >= in.Y+in.Height {
			break
		}
		buf.SetString(in.X, y, line, inputStyle, in.Width)
		y++
	}
}

func helpText() string {
	var b strings.Builder
	b.WriteString("MEGA-CLI Keyboard Shortcuts\n\nNavigation:\n")
	for _, k := range keys.navigation() {
		h := k.Help()
		fmt.Fprintf(&b, "  %-12s%s\n", h.Key, h.Desc)
	}
	b.WriteString("\nCommands:\n")
	for _, k := range keys.commands() {
		h := k.Help()
		fmt.Fprintf(&b, "  %-12s%s\n", h.Key, h.Desc)
	}
	b.WriteString("\nAI Providers:\n")
	for _, p := range backend.Providers {
		fmt.Fprintf(&b, "  - %s\n", p.Name())
	}
	b.WriteString("\nYour conversations are saved per AI provider.\n")
	b.WriteString("Switch between providers with F2, your chat\n")
	b.WriteString("history will be preserved!\n\n")
	b.WriteString("Press F1 to return to chat.")
	return b.String()
}

// drawCentered writes each line of text horizontally centered, with the
// block vertically centered in area
func drawCentered(buf *screen.Buffer, area screen.Rect, text string, st screen.Style) {
	lines := wrapLines(text, area.Width)
	y := area.Y + max((area.Height-len(lines))/2, 0)
	for _, line := range lines {
		if y >= area.Y+area.Height {
			break
		}
		pad := max((area.Width-runewidth.StringWidth(line))/2, 0)
		buf.SetString(area.X+pad, y, line, st, area.Width-pad)
		y++
	}
}

// wrapLines word-wraps s to width cells, breaking words that don't fit
func wrapLines(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	return strings.Split(ansi.Wrap(s, width, ""), "\n")
}
