package features

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imageFrame is a media.Frame over an in-memory image.
type imageFrame struct {
	img      image.Image
	released int
}

func (f *imageFrame) Size() (int, int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

func (f *imageFrame) Image() (image.Image, error) { return f.img, nil }

func (f *imageFrame) JPEG() ([]byte, error) {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, f.img, nil)
	return buf.Bytes(), err
}

func (f *imageFrame) Release() { f.released++ }

func gradient(w, h int, flip bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			if flip {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestPixelExtractor_Shape(t *testing.T) {
	p := NewPixelExtractor(16)
	frame := &imageFrame{img: gradient(64, 48, false)}

	v, err := p.Extract(frame)
	require.NoError(t, err)
	assert.Len(t, v, 16*16)

	var total float32
	for _, x := range v {
		total += x
	}
	assert.InDelta(t, 0, total, 1e-3, "vector is mean centered")
	assert.Zero(t, frame.released, "extractor must not release the frame")
}

func TestPixelExtractor_DistinguishesImages(t *testing.T) {
	p := NewPixelExtractor(8)

	a, err := p.Extract(&imageFrame{img: gradient(32, 32, false)})
	require.NoError(t, err)
	b, err := p.Extract(&imageFrame{img: gradient(32, 32, true)})
	require.NoError(t, err)

	var d float32
	for i := range a {
		d += a[i] * b[i]
	}
	assert.Less(t, d, float32(0), "mirrored gradients point in opposite directions")
}

func TestPixelExtractor_EmptyFrame(t *testing.T) {
	p := NewPixelExtractor(0)
	_, err := p.Extract(&imageFrame{img: image.NewRGBA(image.Rect(0, 0, 0, 0))})
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestToCHW_Layout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	data := toCHW(img, 2, 0, 1)
	require.Len(t, data, 3*2*2)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, data[i], 1e-3)
		assert.InDelta(t, 0.0, data[4+i], 1e-3)
		assert.InDelta(t, 0.0, data[8+i], 1e-3)
	}
}
