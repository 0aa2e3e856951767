package player

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// errStopped means the consumer went away while the worker was waiting on it
var errStopped = errors.New("pipeline stopped")

// errEmptyPass is recorded when a pass over the source produced no frame at all
var errEmptyPass = errors.New("source produced no frames")

type pipelineConfig struct {
	queueSize    int
	maxFaults    int
	pace         bool
	faultBackoff time.Duration
	log          *slog.Logger
}

// Pipeline runs one worker goroutine that pulls rasters from a FrameSource,
// maps them to ASCII and publishes them into a bounded queue. The source is
// restarted at end-of-stream so playback loops forever.
//
// The queue is the only hand-off between the worker and its consumer. A full
// queue blocks the worker, which paces decoding to the consumer. Close is the
// consumer going away: every blocking step of the worker selects on it.
type Pipeline struct {
	cfg    pipelineConfig
	log    *slog.Logger
	frames chan *AsciiFrame

	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}

	// pacing deadline for the next publish, worker-owned
	due time.Time

	published atomic.Int64
	restarts  atomic.Int64
	faults    atomic.Int64

	errMu sync.Mutex
	err   error
}

// startPipeline takes ownership of src and starts the worker
func startPipeline(src FrameSource, mapper *Mapper, cfg pipelineConfig) *Pipeline {
	if cfg.queueSize < 1 {
		cfg.queueSize = DefaultQueueSize
	}
	if cfg.maxFaults < 1 {
		cfg.maxFaults = DefaultMaxFaults
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}

	p := &Pipeline{
		cfg:    cfg,
		log:    cfg.log.With("component", "pipeline"),
		frames: make(chan *AsciiFrame, cfg.queueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	go p.run(src, mapper)

	return p
}

// Frames returns the receiving end of the queue
func (p *Pipeline) Frames() <-chan *AsciiFrame {
	return p.frames
}

// Done is closed once the worker has exited and released the source
func (p *Pipeline) Done() <-chan struct{} {
	return p.exited
}

// Stats returns a snapshot of the worker counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Restarts:  p.restarts.Load(),
		Faults:    p.faults.Load(),
	}
}

// Err returns the error that stopped the worker, nil while it runs or after Close
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Close drops the consumer side and waits for the worker to exit
func (p *Pipeline) Close() {
	p.stop()
	<-p.exited
}

// stop drops the consumer side without waiting for the worker
func (p *Pipeline) stop() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *Pipeline) stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Pipeline) fail(err error) {
	p.errMu.Lock()
	p.err = err
	p.errMu.Unlock()
}

func (p *Pipeline) run(src FrameSource, mapper *Mapper) {
	defer close(p.exited)
	defer src.Close()

	p.log.Debug("worker started", "queue", p.cfg.queueSize)

	// consecutive passes that ended without a single published frame
	empty := 0

	for {
		n, err := p.stream(src, mapper)
		if errors.Is(err, errStopped) {
			p.log.Debug("consumer gone, worker stopping", "published", p.published.Load())
			return
		}

		if err != nil {
			p.faults.Add(1)
			p.log.Warn("decode fault, restarting", "error", err, "frames", n)
		}

		if n > 0 {
			empty = 0
		} else {
			empty++
			if err == nil {
				err = errEmptyPass
			}
		}

		if empty >= p.cfg.maxFaults {
			p.fail(fmt.Errorf("giving up after %d empty passes: %w", empty, err))
			p.log.Error("worker stopped", "error", err)
			return
		}

		if err != nil && !p.sleep(p.cfg.faultBackoff) {
			return
		}

		for {
			rerr := src.Restart()
			if rerr == nil {
				break
			}

			p.faults.Add(1)
			empty++
			p.log.Warn("restart failed", "error", rerr, "attempt", empty)
			if empty >= p.cfg.maxFaults {
				p.fail(fmt.Errorf("restart failed %d times: %w", empty, rerr))
				p.log.Error("worker stopped", "error", rerr)
				return
			}
			if !p.sleep(p.cfg.faultBackoff) {
				return
			}
		}

		p.restarts.Add(1)
		p.log.Debug("looped to start", "restarts", p.restarts.Load())
	}
}

// stream publishes frames until the source is exhausted or fails. It returns
// the number of frames published during this pass.
func (p *Pipeline) stream(src FrameSource, mapper *Mapper) (int, error) {
	published := 0
	for {
		rgb, err := src.Next()
		if errors.Is(err, io.EOF) {
			return published, nil
		}
		if err != nil {
			return published, err
		}

		if !p.pace(rgb.Duration) {
			return published, errStopped
		}
		if p.stopped() {
			return published, errStopped
		}

		select {
		case p.frames <- mapper.Map(rgb):
		case <-p.done:
			return published, errStopped
		}

		p.published.Add(1)
		published++
	}
}

// pace waits until the previous frame's display time has elapsed.
// Returns false if the consumer went away meanwhile.
func (p *Pipeline) pace(d time.Duration) bool {
	if !p.cfg.pace || d <= 0 {
		return true
	}

	now := time.Now()
	if p.due.Before(now) {
		// we fell behind (queue was full), don't burst to catch up
		p.due = now
	}
	wait := p.due.Sub(now)
	p.due = p.due.Add(d)

	return p.sleep(wait)
}

func (p *Pipeline) sleep(d time.Duration) bool {
	if d <= 0 {
		return !p.stopped()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-p.done:
		return false
	}
}
