package features

import (
	"fmt"

	"teachablecam/internal/media"

	"github.com/nfnt/resize"
)

// PixelExtractor downsamples the frame to a small grayscale thumbnail and
// centers it on its mean brightness. It needs no model file and is the
// default extractor.
type PixelExtractor struct {
	size int
}

func NewPixelExtractor(size int) *PixelExtractor {
	if size < 1 {
		size = 32
	}
	return &PixelExtractor{size: size}
}

func (p *PixelExtractor) Extract(frame media.Frame) ([]float32, error) {
	img, err := frameImage(frame)
	if err != nil {
		return nil, err
	}

	thumb := resize.Resize(uint(p.size), uint(p.size), img, resize.Bilinear)
	bounds := thumb.Bounds()
	if bounds.Dx() != p.size || bounds.Dy() != p.size {
		return nil, fmt.Errorf("features: resized to %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), p.size, p.size)
	}

	out := make([]float32, 0, p.size*p.size)
	var total float32
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := thumb.At(x, y).RGBA()
			// ITU-R BT.601 luma
			luma := (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 65535.0
			out = append(out, luma)
			total += luma
		}
	}

	mean := total / float32(len(out))
	for i := range out {
		out[i] -= mean
	}
	return out, nil
}

func (p *PixelExtractor) Close() error { return nil }
