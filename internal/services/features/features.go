// Package features turns captured frames into vectors for the classifier.
package features

import (
	"errors"
	"image"

	"teachablecam/internal/media"

	"github.com/nfnt/resize"
)

var ErrEmptyFrame = errors.New("features: frame is empty")

// Extractor computes a feature vector for a frame. It must not retain the
// frame after returning.
type Extractor interface {
	Extract(frame media.Frame) ([]float32, error)
	Close() error
}

// frameImage converts a frame to a Go image, rejecting empty frames.
func frameImage(frame media.Frame) (image.Image, error) {
	if w, h := frame.Size(); w == 0 || h == 0 {
		return nil, ErrEmptyFrame
	}
	return frame.Image()
}

// toCHW resizes img to size x size and lays out normalized RGB planes
// channel-first, the layout image models expect.
func toCHW(img image.Image, size int, mean, std float32) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*width + x
			data[i] = (float32(r)/65535.0 - mean) / std
			data[plane+i] = (float32(g)/65535.0 - mean) / std
			data[2*plane+i] = (float32(b)/65535.0 - mean) / std
		}
	}
	return data
}
