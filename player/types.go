package player

import (
	"errors"
	"time"

	"github.com/asticode/go-astiav"
)

func init() {
	// Suppress FFmpeg log messages, they would corrupt the TUI
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

var (
	// ErrUnopenable is returned when the container cannot be parsed or has no video stream
	ErrUnopenable = errors.New("media unopenable")

	// ErrScale is returned when no rescaler can be built for the source pixel format
	ErrScale = errors.New("cannot scale video")

	// ErrDecode wraps mid-stream demux and decode faults
	ErrDecode = errors.New("decode error")

	// errNeedInput means the decoder wants another packet before it can emit a frame
	errNeedInput = errors.New("decoder needs input")
)

const (
	// DefaultQueueSize is the capacity of the frame queue between worker and compositor
	DefaultQueueSize = 8

	// DefaultMaxFaults is the number of consecutive empty passes tolerated before the worker gives up
	DefaultMaxFaults = 3
)

// Cell is one character of an ASCII frame with the pixel color it was mapped from
type Cell struct {
	Char    rune
	R, G, B uint8
}

// AsciiFrame is a row-major grid of cells, len(Cells) == Width*Height
type AsciiFrame struct {
	Width  int
	Height int
	Cells  []Cell
}

// At returns the cell at column x, row y
func (f *AsciiFrame) At(x, y int) Cell {
	return f.Cells[y*f.Width+x]
}

// Raster is a packed RGB24 image
type Raster struct {
	Width    int
	Height   int
	Pix      []byte        // len == Width*Height*3
	Duration time.Duration // nominal display time, 0 if unknown
}

// FrameSource yields fixed-size rasters in presentation order.
type FrameSource interface {
	// Next returns the next raster. It returns io.EOF once the stream,
	// including any frames buffered in the decoder, is exhausted.
	Next() (*Raster, error)

	// Restart rewinds the source to its first frame, rebuilding any decoder state.
	Restart() error

	// Close releases all resources
	Close()
}

// Stats is a snapshot of worker counters
type Stats struct {
	Published int64 // frames handed to the queue
	Restarts  int64 // loop restarts, including fault recoveries
	Faults    int64 // decode or restart errors
}
