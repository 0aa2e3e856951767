package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
)

// Demuxer opens a container and reads packets of its first video stream
type Demuxer struct {
	formatCtx   *astiav.FormatContext
	videoStream *astiav.Stream
	videoIdx    int

	// Nominal frame duration from the stream's average frame rate
	frameDuration time.Duration

	mu     sync.Mutex
	closed bool
}

// NewDemuxer opens the container at path. It fails with ErrUnopenable when the
// file cannot be parsed or carries no video stream.
func NewDemuxer(path string) (*Demuxer, error) {
	d := &Demuxer{
		videoIdx: -1,
	}

	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, fmt.Errorf("%w: failed to allocate format context", ErrUnopenable)
	}

	if err := d.formatCtx.OpenInput(path, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("%w: open input %s: %w", ErrUnopenable, path, err)
	}

	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: find stream info: %w", ErrUnopenable, err)
	}

	for _, stream := range d.formatCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			d.videoIdx = stream.Index()
			d.videoStream = stream
			break
		}
	}

	if d.videoIdx == -1 {
		d.Close()
		return nil, fmt.Errorf("%w: no video stream in %s", ErrUnopenable, path)
	}

	if fr := d.videoStream.AvgFrameRate(); fr.Num() > 0 && fr.Den() > 0 {
		d.frameDuration = time.Duration(float64(time.Second) * float64(fr.Den()) / float64(fr.Num()))
	}

	return d, nil
}

// VideoCodecParameters returns the video codec parameters
func (d *Demuxer) VideoCodecParameters() *astiav.CodecParameters {
	return d.videoStream.CodecParameters()
}

// VideoStreamIndex returns the index of the selected video stream
func (d *Demuxer) VideoStreamIndex() int {
	return d.videoIdx
}

// FrameDuration returns the nominal duration of one frame, 0 if the stream does not say
func (d *Demuxer) FrameDuration() time.Duration {
	return d.frameDuration
}

// ReadVideoPacket returns the next packet of the video stream. Packets of all
// other streams are dropped. Returns io.EOF when the input is exhausted.
// The caller owns the packet and must Free it.
func (d *Demuxer) ReadVideoPacket() (*astiav.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("demuxer closed")
	}

	for {
		pkt := astiav.AllocPacket()
		if pkt == nil {
			return nil, fmt.Errorf("failed to allocate packet")
		}

		if err := d.formatCtx.ReadFrame(pkt); err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEof) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: read frame: %w", ErrDecode, err)
		}

		if pkt.StreamIndex() == d.videoIdx {
			return pkt, nil
		}
		pkt.Free()
	}
}

// startTimestamp is the first video timestamp, in stream time base.
// Containers such as MPEG-TS do not start at 0.
func (d *Demuxer) startTimestamp() int64 {
	if ts := d.videoStream.StartTime(); ts != astiav.NoPtsValue {
		return ts
	}
	return 0
}

// SeekStart rewinds the container to its first video timestamp
func (d *Demuxer) SeekStart() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("demuxer closed")
	}

	if err := d.formatCtx.SeekFrame(d.videoIdx, d.startTimestamp(), astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}
	return nil
}

// Close releases all resources
func (d *Demuxer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
}
