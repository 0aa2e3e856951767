package player

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource yields a fixed list of rasters per pass
type fakeSource struct {
	mu sync.Mutex

	frames []*Raster
	pos    int
	pass   int

	// failAt makes Next return failErr at that position during failPass
	failPass int
	failAt   int
	failErr  error

	// errAlways makes every Next fail
	errAlways error

	restartErr error
	restarts   int
	closed     bool

	// Next closes held and waits on hold when it reaches holdAt
	holdAt int
	hold   chan struct{}
	held   chan struct{}
}

func (s *fakeSource) Next() (*Raster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hold != nil && s.pos == s.holdAt {
		hold := s.hold
		s.hold = nil
		close(s.held)
		s.mu.Unlock()
		<-hold
		s.mu.Lock()
	}
	if s.errAlways != nil {
		return nil, s.errAlways
	}
	if s.failErr != nil && s.pass == s.failPass && s.pos == s.failAt {
		return nil, s.failErr
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	r := s.frames[s.pos]
	s.pos++
	return r, nil
}

func (s *fakeSource) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restarts++
	if s.restartErr != nil {
		return s.restartErr
	}
	s.pos = 0
	s.pass++
	return nil
}

func (s *fakeSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func solid(w, h int, r, g, b uint8) *Raster {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return &Raster{Width: w, Height: h, Pix: pix}
}

func threeFrames() []*Raster {
	return []*Raster{
		solid(2, 2, 0, 0, 0),
		solid(2, 2, 128, 128, 128),
		solid(2, 2, 255, 255, 255),
	}
}

func testConfig(queue int) pipelineConfig {
	return pipelineConfig{
		queueSize:    queue,
		maxFaults:    3,
		faultBackoff: time.Millisecond,
		log:          slog.New(slog.DiscardHandler),
	}
}

func testMapper(t *testing.T) *Mapper {
	t.Helper()

	m, err := NewMapper(DefaultPalette)
	require.NoError(t, err)
	return m
}

func receive(t *testing.T, p *Pipeline) *AsciiFrame {
	t.Helper()

	select {
	case f := <-p.Frames():
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for a frame")
		return nil
	}
}

func waitDone(t *testing.T, p *Pipeline) {
	t.Helper()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "worker did not exit")
	}
}

func TestPipelineLoops(t *testing.T) {
	t.Parallel()

	src := &fakeSource{frames: threeFrames()}
	p := startPipeline(src, testMapper(t), testConfig(8))
	defer p.Close()

	got := make([]*AsciiFrame, 7)
	for i := range got {
		got[i] = receive(t, p)
	}

	assert.Equal(t, got[0], got[3], "fourth frame starts the second pass")
	assert.Equal(t, got[1], got[4])
	assert.Equal(t, got[0], got[6])
	assert.NotEqual(t, got[0], got[1])

	assert.Equal(t, ' ', got[0].At(0, 0).Char)
	assert.Equal(t, '█', got[2].At(1, 1).Char)

	assert.GreaterOrEqual(t, p.Stats().Restarts, int64(2))
	assert.NoError(t, p.Err())
}

func TestPipelineBackpressure(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("capacity %d", n), func(t *testing.T) {
			t.Parallel()

			src := &fakeSource{frames: threeFrames()}
			p := startPipeline(src, testMapper(t), testConfig(n))
			defer p.Close()

			require.Eventually(t, func() bool {
				return p.Stats().Published == int64(n)
			}, 2*time.Second, time.Millisecond)

			// the worker is now blocked on a full queue
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, int64(n), p.Stats().Published)
			assert.Len(t, p.Frames(), n)

			// one slot frees up, exactly one more frame goes in
			receive(t, p)
			require.Eventually(t, func() bool {
				return p.Stats().Published == int64(n)+1
			}, 2*time.Second, time.Millisecond)
		})
	}
}

func TestPipelineCloseStopsBlockedWorker(t *testing.T) {
	t.Parallel()

	src := &fakeSource{frames: threeFrames()}
	p := startPipeline(src, testMapper(t), testConfig(1))

	require.Eventually(t, func() bool {
		return p.Stats().Published == 1
	}, 2*time.Second, time.Millisecond)

	p.Close()
	waitDone(t, p)
	assert.True(t, src.isClosed())
	assert.NoError(t, p.Err())

	// closing twice is fine
	p.Close()
}

func TestPipelinePublishesNothingAfterClose(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		frames: threeFrames(),
		holdAt: 1,
		hold:   make(chan struct{}),
		held:   make(chan struct{}),
	}
	p := startPipeline(src, testMapper(t), testConfig(8))

	select {
	case <-src.held:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "worker never asked for the second frame")
	}

	// the queue still has room when the decoded frame comes back
	p.stop()
	close(src.hold)
	waitDone(t, p)

	assert.Equal(t, int64(1), p.Stats().Published)
	assert.Len(t, p.Frames(), 1)
	assert.NoError(t, p.Err())
}

func TestPipelineCloseInterruptsPacing(t *testing.T) {
	t.Parallel()

	frames := threeFrames()
	for _, f := range frames {
		f.Duration = time.Hour
	}

	cfg := testConfig(8)
	cfg.pace = true
	p := startPipeline(&fakeSource{frames: frames}, testMapper(t), cfg)

	receive(t, p)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Close blocked on a pacing wait")
	}
}

func TestPipelinePacing(t *testing.T) {
	t.Parallel()

	frames := threeFrames()
	for _, f := range frames {
		f.Duration = 30 * time.Millisecond
	}

	cfg := testConfig(8)
	cfg.pace = true
	p := startPipeline(&fakeSource{frames: frames}, testMapper(t), cfg)
	defer p.Close()

	start := time.Now()
	for range 4 {
		receive(t, p)
	}
	// the first frame goes out at once, the next three each wait 30ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPipelineStopsAfterMaxFaults(t *testing.T) {
	t.Parallel()

	decodeErr := fmt.Errorf("%w: corrupt packet", ErrDecode)
	src := &fakeSource{errAlways: decodeErr}
	p := startPipeline(src, testMapper(t), testConfig(8))

	waitDone(t, p)

	err := p.Err()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, int64(3), p.Stats().Faults)
	assert.Equal(t, int64(2), p.Stats().Restarts)
	assert.Equal(t, int64(0), p.Stats().Published)
	assert.True(t, src.isClosed())

	p.Close()
}

func TestPipelineStopsOnEmptySource(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	cfg := testConfig(8)
	cfg.maxFaults = 2
	p := startPipeline(src, testMapper(t), cfg)

	waitDone(t, p)
	require.ErrorIs(t, p.Err(), errEmptyPass)
	assert.Equal(t, int64(0), p.Stats().Faults)
}

func TestPipelineRecoversFromMidStreamFault(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		frames:   threeFrames(),
		failPass: 0,
		failAt:   1,
		failErr:  fmt.Errorf("%w: bad frame", ErrDecode),
	}
	p := startPipeline(src, testMapper(t), testConfig(8))
	defer p.Close()

	// pass 0 publishes one frame then faults; later passes are clean
	for range 7 {
		receive(t, p)
	}

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Faults)
	assert.GreaterOrEqual(t, stats.Restarts, int64(2))
	assert.NoError(t, p.Err())
}

func TestPipelineStopsWhenRestartKeepsFailing(t *testing.T) {
	t.Parallel()

	restartErr := errors.New("seek failed")
	src := &fakeSource{frames: threeFrames(), restartErr: restartErr}
	p := startPipeline(src, testMapper(t), testConfig(8))

	for range 3 {
		receive(t, p)
	}

	waitDone(t, p)
	require.ErrorIs(t, p.Err(), restartErr)
	assert.Equal(t, int64(3), p.Stats().Faults)
	assert.Equal(t, int64(0), p.Stats().Restarts)
}
