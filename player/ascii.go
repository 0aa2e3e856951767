package player

import (
	"fmt"
	"math"
)

const (
	// DefaultPalette is an ASCII brightness ramp from light to dense, closed by a solid block
	DefaultPalette = " .'`^\",:;Il!i><~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$█"

	// BlockPalette uses shade glyphs only
	BlockPalette = " ░▒▓█"
)

// PaletteByName resolves "ascii" and "blocks". Any other value is taken as a
// literal light-to-dense ramp.
func PaletteByName(name string) string {
	switch name {
	case "", "ascii":
		return DefaultPalette
	case "blocks":
		return BlockPalette
	}
	return name
}

// Mapper converts RGB pixels into characters by perceived brightness
type Mapper struct {
	palette []rune
}

// NewMapper creates a mapper over the given light-to-dense palette
func NewMapper(palette string) (*Mapper, error) {
	runes := []rune(palette)
	if len(runes) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	return &Mapper{palette: runes}, nil
}

// PaletteSize returns the number of glyphs in the palette
func (m *Mapper) PaletteSize() int {
	return len(m.palette)
}

// Luminance returns the rounded Rec. 601 luma of a pixel
func Luminance(r, g, b uint8) uint8 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return uint8(math.Round(y))
}

// Index returns the palette index for a pixel
func (m *Mapper) Index(r, g, b uint8) int {
	return int(Luminance(r, g, b)) * (len(m.palette) - 1) / 255
}

// Char returns the glyph for a pixel
func (m *Mapper) Char(r, g, b uint8) rune {
	return m.palette[m.Index(r, g, b)]
}

// Map converts a raster into an ASCII frame. Each cell keeps the source color.
func (m *Mapper) Map(rgb *Raster) *AsciiFrame {
	n := rgb.Width * rgb.Height
	cells := make([]Cell, n)
	for i := range n {
		r, g, b := rgb.Pix[i*3], rgb.Pix[i*3+1], rgb.Pix[i*3+2]
		cells[i] = Cell{Char: m.Char(r, g, b), R: r, G: g, B: b}
	}

	return &AsciiFrame{
		Width:  rgb.Width,
		Height: rgb.Height,
		Cells:  cells,
	}
}
