package player

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
)

// VideoDecoder turns video packets into raw frames. A decoder is never reused
// across a seek; build a new one instead.
type VideoDecoder struct {
	codecCtx *astiav.CodecContext
	frame    *astiav.Frame

	mu     sync.Mutex
	closed bool
}

// NewVideoDecoder creates a video decoder from codec parameters
func NewVideoDecoder(codecParams *astiav.CodecParameters) (*VideoDecoder, error) {
	v := &VideoDecoder{}

	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("%w: video codec not found: %s", ErrUnopenable, codecParams.CodecID())
	}

	v.codecCtx = astiav.AllocCodecContext(codec)
	if v.codecCtx == nil {
		return nil, fmt.Errorf("%w: failed to allocate video codec context", ErrUnopenable)
	}

	if err := codecParams.ToCodecContext(v.codecCtx); err != nil {
		v.Close()
		return nil, fmt.Errorf("%w: copy video codec params: %w", ErrUnopenable, err)
	}

	if err := v.codecCtx.Open(codec, nil); err != nil {
		v.Close()
		return nil, fmt.Errorf("%w: open video codec: %w", ErrUnopenable, err)
	}

	v.frame = astiav.AllocFrame()

	return v, nil
}

// PixelFormat returns the decoder's output pixel format
func (v *VideoDecoder) PixelFormat() astiav.PixelFormat {
	return v.codecCtx.PixelFormat()
}

// Size returns the coded frame dimensions
func (v *VideoDecoder) Size() (int, int) {
	return v.codecCtx.Width(), v.codecCtx.Height()
}

// SendPacket submits one packet to the codec
func (v *VideoDecoder) SendPacket(pkt *astiav.Packet) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("video decoder closed")
	}

	if err := v.codecCtx.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("%w: send video packet: %w", ErrDecode, err)
	}
	return nil
}

// SendEOF submits the end-of-stream sentinel so buffered frames can be drained
func (v *VideoDecoder) SendEOF() error {
	return v.SendPacket(nil)
}

// ReceiveFrame returns the next decoded frame. The frame is owned by the
// decoder and stays valid until the next call. It returns errNeedInput when
// the codec wants another packet and io.EOF once a flushed decoder is empty.
func (v *VideoDecoder) ReceiveFrame() (*astiav.Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, fmt.Errorf("video decoder closed")
	}

	v.frame.Unref()

	if err := v.codecCtx.ReceiveFrame(v.frame); err != nil {
		switch {
		case errors.Is(err, astiav.ErrEagain):
			return nil, errNeedInput
		case errors.Is(err, astiav.ErrEof):
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: receive video frame: %w", ErrDecode, err)
	}

	return v.frame, nil
}

// Close releases all resources
func (v *VideoDecoder) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true

	if v.frame != nil {
		v.frame.Free()
		v.frame = nil
	}
	if v.codecCtx != nil {
		v.codecCtx.Free()
		v.codecCtx = nil
	}
}
