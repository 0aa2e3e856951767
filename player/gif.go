package player

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// gifSource is a FrameSource over an animated GIF decoded without FFmpeg.
// All frames are composited and pre-scaled when the source is opened.
type gifSource struct {
	frames []*Raster
	pos    int
}

// openGIFSource decodes the GIF at path and scales every frame to width x height
func openGIFSource(path string, width, height int) (*gifSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", ErrScale, width, height)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open gif: %w", ErrUnopenable, err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode gif: %w", ErrUnopenable, err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("%w: gif has no frames", ErrUnopenable)
	}

	composited := compositeGifFrames(g)

	frames := make([]*Raster, len(composited))
	for i, img := range composited {
		frames[i] = scaleToRaster(img, width, height)

		if i < len(g.Delay) {
			frames[i].Duration = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		if frames[i].Duration < 20*time.Millisecond {
			// browsers treat tiny delays as 100ms
			frames[i].Duration = 100 * time.Millisecond
		}
	}

	return &gifSource{frames: frames}, nil
}

func (s *gifSource) Next() (*Raster, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	r := s.frames[s.pos]
	s.pos++
	return r, nil
}

func (s *gifSource) Restart() error {
	s.pos = 0
	return nil
}

func (s *gifSource) Close() {
	s.frames = nil
}

// compositeGifFrames renders GIF frames onto a canvas, respecting disposal modes.
func compositeGifFrames(g *gif.GIF) []*image.RGBA {
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Dx(), b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	result := make([]*image.RGBA, len(g.Image))

	for i, frame := range g.Image {
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var prev *image.RGBA
		if disposal == gif.DisposalPrevious {
			prev = cloneRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		result[i] = cloneRGBA(canvas)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			if prev != nil {
				canvas = prev
			}
		}
	}

	return result
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	cp := image.NewRGBA(img.Bounds())
	copy(cp.Pix, img.Pix)
	return cp
}

// scaleToRaster stretches src to exactly dstW x dstH with a bilinear filter
// and packs it as RGB24. Transparent pixels become black.
func scaleToRaster(src image.Image, dstW, dstH int) *Raster {
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	pix := make([]byte, dstW*dstH*3)
	for y := range dstH {
		row := dst.Pix[y*dst.Stride:]
		for x := range dstW {
			// RGBA is alpha-premultiplied, so dropping alpha blends onto black
			copy(pix[(y*dstW+x)*3:], row[x*4:x*4+3])
		}
	}

	return &Raster{Width: dstW, Height: dstH, Pix: pix}
}
