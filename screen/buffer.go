// Package screen is a cell buffer the video background and the chat widgets
// draw into once per frame. Widgets only touch the cells they write, so
// anything drawn earlier shows through the gaps.
package screen

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Style is the look of one cell
type Style struct {
	FG   lipgloss.Color // "" keeps the terminal default
	Bold bool
}

// Cell is one terminal cell. A zero Rune is a blank.
// Wide runes occupy two cells, the second one is marked as a continuation.
type Cell struct {
	Rune  rune
	Style Style
	cont  bool
}

// Rect is an area of the buffer in cells
type Rect struct {
	X, Y          int
	Width, Height int
}

// Inner returns the area inside a one-cell border
func (r Rect) Inner() Rect {
	in := Rect{X: r.X + 1, Y: r.Y + 1, Width: r.Width - 2, Height: r.Height - 2}
	in.Width = max(in.Width, 0)
	in.Height = max(in.Height, 0)
	return in
}

// Empty reports whether the rect covers no cell
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// SplitVertical stacks rows of the given heights from the top. One height may
// be -1, that row takes whatever is left. Rows are clipped to r.
func (r Rect) SplitVertical(heights ...int) []Rect {
	fixed := 0
	for _, h := range heights {
		if h > 0 {
			fixed += h
		}
	}
	flex := max(r.Height-fixed, 0)

	rows := make([]Rect, len(heights))
	y := r.Y
	bottom := r.Y + r.Height
	for i, h := range heights {
		if h < 0 {
			h = flex
		}
		h = max(min(h, bottom-y), 0)
		rows[i] = Rect{X: r.X, Y: y, Width: r.Width, Height: h}
		y += h
	}
	return rows
}

// Buffer is a width x height grid of cells
type Buffer struct {
	width  int
	height int
	cells  []Cell
}

// New allocates a blank buffer
func New(width, height int) *Buffer {
	width = max(width, 0)
	height = max(height, 0)
	return &Buffer{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
}

// Area returns the whole buffer as a rect
func (b *Buffer) Area() Rect {
	return Rect{Width: b.width, Height: b.height}
}

// Cell returns the cell at x, y or nil when outside the buffer
func (b *Buffer) Cell(x, y int) *Cell {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return nil
	}
	return &b.cells[y*b.width+x]
}

// Set writes a rune with a style, ignoring positions outside the buffer
func (b *Buffer) Set(x, y int, r rune, st Style) {
	c := b.Cell(x, y)
	if c == nil {
		return
	}
	if c.cont {
		// overwriting the right half of a wide rune
		if prev := b.Cell(x-1, y); prev != nil {
			*prev = Cell{}
		}
	}
	*c = Cell{Rune: r, Style: st}
	if next := b.Cell(x+1, y); next != nil && next.cont {
		*next = Cell{}
	}
}

// SetString writes s starting at x, y without wrapping, stopping after
// maxWidth cells (maxWidth <= 0 means up to the buffer edge). It returns the
// number of cells written.
func (b *Buffer) SetString(x, y int, s string, st Style, maxWidth int) int {
	limit := b.width - x
	if maxWidth > 0 {
		limit = min(limit, maxWidth)
	}

	col := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > limit {
			break
		}
		b.Set(x+col, y, r, st)
		if w == 2 {
			if c := b.Cell(x+col+1, y); c != nil {
				*c = Cell{Style: st, cont: true}
			}
		}
		col += w
	}
	return col
}

// SetStyle restyles every cell of r and keeps its rune
func (b *Buffer) SetStyle(r Rect, st Style) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			if c := b.Cell(x, y); c != nil {
				c.Style = st
			}
		}
	}
}

// DrawBox draws a rounded border around r with an optional title on the top edge
func (b *Buffer) DrawBox(r Rect, title string, st Style) {
	if r.Width < 2 || r.Height < 2 {
		return
	}

	right := r.X + r.Width - 1
	bottom := r.Y + r.Height - 1

	for x := r.X + 1; x < right; x++ {
		b.Set(x, r.Y, '─', st)
		b.Set(x, bottom, '─', st)
	}
	for y := r.Y + 1; y < bottom; y++ {
		b.Set(r.X, y, '│', st)
		b.Set(right, y, '│', st)
	}
	b.Set(r.X, r.Y, '╭', st)
	b.Set(right, r.Y, '╮', st)
	b.Set(r.X, bottom, '╰', st)
	b.Set(right, bottom, '╯', st)

	if title != "" {
		b.SetString(r.X+1, r.Y, title, st, r.Width-2)
	}
}

// Render turns the buffer into lines of text with escape sequences for the
// current color profile. Consecutive cells with the same style share one sequence.
func (b *Buffer) Render() string {
	profile := lipgloss.ColorProfile()

	var out strings.Builder
	var run strings.Builder

	for y := range b.height {
		if y > 0 {
			out.WriteByte('\n')
		}

		var cur Style
		flush := func() {
			if run.Len() == 0 {
				return
			}
			out.WriteString(styled(profile, cur, run.String()))
			run.Reset()
		}

		for x := range b.width {
			c := b.cells[y*b.width+x]
			if c.cont {
				continue
			}
			if c.Style != cur {
				flush()
				cur = c.Style
			}
			if c.Rune == 0 {
				run.WriteByte(' ')
			} else {
				run.WriteRune(c.Rune)
			}
		}
		flush()
	}

	return out.String()
}

func styled(p termenv.Profile, st Style, s string) string {
	if st == (Style{}) || p == termenv.Ascii {
		return s
	}
	ts := termenv.Style{}
	if st.FG != "" {
		ts = ts.Foreground(p.Color(string(st.FG)))
	}
	if st.Bold {
		ts = ts.Bold()
	}
	return ts.Styled(s)
}
