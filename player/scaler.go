package player

import (
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
)

// Rescaler converts decoded frames of any pixel format and size into RGB24
// rasters of a fixed destination size using a bilinear filter.
type Rescaler struct {
	swsCtx   *astiav.SoftwareScaleContext
	rgbFrame *astiav.Frame

	srcFormat astiav.PixelFormat
	srcWidth  int
	srcHeight int
	dstWidth  int
	dstHeight int

	// copied into every raster
	frameDuration time.Duration
}

// NewRescaler builds a rescaler from the given source geometry to dstW x dstH.
// It fails with ErrScale when swscale cannot handle the combination.
func NewRescaler(srcFormat astiav.PixelFormat, srcW, srcH, dstW, dstH int) (*Rescaler, error) {
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", ErrScale, dstW, dstH)
	}

	s := &Rescaler{
		dstWidth:  dstW,
		dstHeight: dstH,
		rgbFrame:  astiav.AllocFrame(),
	}

	s.rgbFrame.SetWidth(dstW)
	s.rgbFrame.SetHeight(dstH)
	s.rgbFrame.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := s.rgbFrame.AllocBuffer(1); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: allocate RGB frame buffer: %w", ErrScale, err)
	}

	if err := s.configure(srcFormat, srcW, srcH); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Rescaler) configure(srcFormat astiav.PixelFormat, srcW, srcH int) error {
	if srcFormat == astiav.PixelFormatNone || srcW <= 0 || srcH <= 0 {
		return fmt.Errorf("%w: unusable source %s %dx%d", ErrScale, srcFormat, srcW, srcH)
	}

	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}

	var err error
	s.swsCtx, err = astiav.CreateSoftwareScaleContext(
		srcW, srcH, srcFormat,
		s.dstWidth, s.dstHeight, astiav.PixelFormatRgb24,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("%w: create sws context for %s: %w", ErrScale, srcFormat, err)
	}

	s.srcFormat = srcFormat
	s.srcWidth = srcW
	s.srcHeight = srcH
	return nil
}

// SetFrameDuration sets the duration stamped on produced rasters
func (s *Rescaler) SetFrameDuration(d time.Duration) {
	s.frameDuration = d
}

// Convert scales one decoded frame. The result always has exactly the
// destination size and owns its pixel data.
func (s *Rescaler) Convert(frame *astiav.Frame) (*Raster, error) {
	if frame.PixelFormat() != s.srcFormat || frame.Width() != s.srcWidth || frame.Height() != s.srcHeight {
		// mid-stream geometry change
		if err := s.configure(frame.PixelFormat(), frame.Width(), frame.Height()); err != nil {
			return nil, err
		}
	}

	if err := s.swsCtx.ScaleFrame(frame, s.rgbFrame); err != nil {
		return nil, fmt.Errorf("%w: scale frame: %w", ErrDecode, err)
	}

	rgbBytes, err := s.rgbFrame.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("%w: get RGB bytes: %w", ErrDecode, err)
	}

	want := s.dstWidth * s.dstHeight * 3
	if len(rgbBytes) < want {
		return nil, fmt.Errorf("%w: short RGB buffer: %d < %d", ErrDecode, len(rgbBytes), want)
	}

	// Copy the data since the frame buffer will be reused
	pix := make([]byte, want)
	copy(pix, rgbBytes)

	return &Raster{
		Width:    s.dstWidth,
		Height:   s.dstHeight,
		Pix:      pix,
		Duration: s.frameDuration,
	}, nil
}

// Close releases all resources
func (s *Rescaler) Close() {
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}
	if s.rgbFrame != nil {
		s.rgbFrame.Free()
		s.rgbFrame = nil
	}
}
