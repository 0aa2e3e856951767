package player

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/njyeung/megacli/screen"
)

type options struct {
	queueSize int
	maxFaults int
	palette   string
	pace      bool
	log       *slog.Logger
}

// Option configures a BackgroundVideo
type Option func(*options)

// WithQueueSize sets the capacity of the frame queue
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithMaxFaults sets how many consecutive empty passes the worker tolerates
func WithMaxFaults(n int) Option {
	return func(o *options) { o.maxFaults = n }
}

// WithPalette sets the light-to-dense glyph ramp
func WithPalette(p string) Option {
	return func(o *options) { o.palette = p }
}

// WithPacing makes the worker hold each frame for its nominal duration
// instead of running only against queue backpressure
func WithPacing(on bool) Option {
	return func(o *options) { o.pace = on }
}

// WithLogger sets the logger used by the worker
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// BackgroundVideo plays a video file as a looping, dimmed ASCII background.
// Decoding runs on its own goroutine; Update and Render never block.
// Close stops the worker and waits for it. A BackgroundVideo that becomes
// unreachable without Close stops its worker once collected.
type BackgroundVideo struct {
	pipeline *Pipeline
	latest   *AsciiFrame
	opacity  float64
}

// NewBackgroundVideo opens path and starts decoding into width x height
// cells. Opening errors are returned here; the caller can run without a
// background. Opacity is clamped into [0, 1].
func NewBackgroundVideo(path string, width, height int, opacity float64, opts ...Option) (*BackgroundVideo, error) {
	o := options{
		queueSize: DefaultQueueSize,
		maxFaults: DefaultMaxFaults,
		palette:   DefaultPalette,
		pace:      true,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	mapper, err := NewMapper(o.palette)
	if err != nil {
		return nil, err
	}

	var src FrameSource
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		src, err = openGIFSource(path, width, height)
	} else {
		src, err = openSession(path, width, height)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open background video: %w", err)
	}

	o.log.Info("background video opened", "path", path, "width", width, "height", height)

	return newBackgroundVideo(src, mapper, opacity, o), nil
}

func newBackgroundVideo(src FrameSource, mapper *Mapper, opacity float64, o options) *BackgroundVideo {
	p := startPipeline(src, mapper, pipelineConfig{
		queueSize:    o.queueSize,
		maxFaults:    o.maxFaults,
		pace:         o.pace,
		faultBackoff: faultBackoff,
		log:          o.log,
	})

	b := &BackgroundVideo{
		pipeline: p,
		opacity:  clampOpacity(opacity),
	}
	runtime.AddCleanup(b, (*Pipeline).stop, p)

	return b
}

// faultBackoff is the pause before restarting after a decode fault
const faultBackoff = 100 * time.Millisecond

func clampOpacity(o float64) float64 {
	switch {
	case math.IsNaN(o):
		return 0
	case o < 0:
		return 0
	case o > 1:
		return 1
	}
	return o
}

// Opacity returns the clamped opacity
func (b *BackgroundVideo) Opacity() float64 {
	return b.opacity
}

// Update takes at most one new frame from the queue. An empty queue keeps
// the current frame.
func (b *BackgroundVideo) Update() {
	select {
	case f := <-b.pipeline.Frames():
		b.latest = f
	default:
	}
}

// Latest returns the frame currently displayed, nil before the first one
func (b *BackgroundVideo) Latest() *AsciiFrame {
	return b.latest
}

// Render draws the current frame centered in area, clipped to it, with
// colors dimmed toward black by the opacity. Cells outside the drawn region
// are left untouched.
func (b *BackgroundVideo) Render(buf *screen.Buffer, area screen.Rect) {
	f := b.latest
	if f == nil || area.Empty() {
		return
	}

	contentW := min(f.Width, area.Width)
	contentH := min(f.Height, area.Height)

	x0 := area.X + (area.Width-contentW)/2
	y0 := area.Y + (area.Height-contentH)/2

	for y := range contentH {
		for x := range contentW {
			c := f.At(x, y)

			r := uint8(float64(c.R) * b.opacity)
			g := uint8(float64(c.G) * b.opacity)
			bl := uint8(float64(c.B) * b.opacity)

			buf.Set(x0+x, y0+y, c.Char, screen.Style{FG: rgbColor(r, g, bl)})
		}
	}
}

// Stats returns the worker counters
func (b *BackgroundVideo) Stats() Stats {
	return b.pipeline.Stats()
}

// Err returns the error that stopped the worker, if any
func (b *BackgroundVideo) Err() error {
	return b.pipeline.Err()
}

// Close stops the worker and releases the decoder
func (b *BackgroundVideo) Close() {
	b.pipeline.Close()
}

const hexDigits = "0123456789abcdef"

// rgbColor formats a color as #rrggbb without going through fmt
func rgbColor(r, g, b uint8) lipgloss.Color {
	var s [7]byte
	s[0] = '#'
	for i, v := range [3]uint8{r, g, b} {
		s[1+i*2] = hexDigits[v>>4]
		s[2+i*2] = hexDigits[v&0x0f]
	}
	return lipgloss.Color(string(s[:]))
}
