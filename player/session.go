package player

import (
	"errors"
	"fmt"
	"io"
)

// decodeSession is the FFmpeg-backed FrameSource: one open container, its
// video decoder and a rescaler sized to the fixed target grid.
type decodeSession struct {
	path          string
	width, height int

	demuxer *Demuxer
	video   *VideoDecoder
	scaler  *Rescaler

	// EOF sentinel already sent to the decoder
	flushing bool
}

// openSession opens path and prepares decoding into width x height rasters
func openSession(path string, width, height int) (*decodeSession, error) {
	s := &decodeSession{
		path:   path,
		width:  width,
		height: height,
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *decodeSession) open() error {
	demuxer, err := NewDemuxer(s.path)
	if err != nil {
		return err
	}

	if err := s.rebuild(demuxer); err != nil {
		demuxer.Close()
		return err
	}

	s.demuxer = demuxer
	return nil
}

// rebuild creates a fresh decoder and rescaler for the demuxer's video stream
func (s *decodeSession) rebuild(demuxer *Demuxer) error {
	video, err := NewVideoDecoder(demuxer.VideoCodecParameters())
	if err != nil {
		return fmt.Errorf("failed to create video decoder: %w", err)
	}

	srcW, srcH := video.Size()
	scaler, err := NewRescaler(video.PixelFormat(), srcW, srcH, s.width, s.height)
	if err != nil {
		video.Close()
		return err
	}
	scaler.SetFrameDuration(demuxer.FrameDuration())

	s.closeCodec()
	s.video = video
	s.scaler = scaler
	s.flushing = false
	return nil
}

// Next pulls packets until the decoder emits a frame, then rescales it.
// After the last packet the decoder is flushed and drained before io.EOF.
func (s *decodeSession) Next() (*Raster, error) {
	if s.demuxer == nil {
		return nil, fmt.Errorf("%w: session closed", ErrDecode)
	}

	for {
		frame, err := s.video.ReceiveFrame()
		switch {
		case err == nil:
			return s.scaler.Convert(frame)
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case !errors.Is(err, errNeedInput):
			return nil, err
		}

		if s.flushing {
			// a flushed decoder must not ask for more input
			return nil, io.EOF
		}

		pkt, err := s.demuxer.ReadVideoPacket()
		if errors.Is(err, io.EOF) {
			s.flushing = true
			if err := s.video.SendEOF(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		err = s.video.SendPacket(pkt)
		pkt.Free()
		if err != nil {
			return nil, err
		}
	}
}

// Restart seeks back to the first frame with a brand new decoder. If the
// container refuses to seek, the whole session is reopened.
func (s *decodeSession) Restart() error {
	if s.demuxer == nil {
		// an earlier reopen failed
		return s.open()
	}
	if err := s.demuxer.SeekStart(); err == nil {
		return s.rebuild(s.demuxer)
	}

	s.Close()
	return s.open()
}

func (s *decodeSession) closeCodec() {
	if s.scaler != nil {
		s.scaler.Close()
		s.scaler = nil
	}
	if s.video != nil {
		s.video.Close()
		s.video = nil
	}
}

// Close releases the container, decoder and rescaler
func (s *decodeSession) Close() {
	s.closeCodec()
	if s.demuxer != nil {
		s.demuxer.Close()
		s.demuxer = nil
	}
}
