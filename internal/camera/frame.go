package camera

import (
	"fmt"
	"image"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Frame is a media.Frame backed by an OpenCV Mat.
type Frame struct {
	mat      gocv.Mat
	released atomic.Bool
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix to OpenCV based extractors. It must not
// be used after Release.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

func (f *Frame) Image() (image.Image, error) {
	img, err := f.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (f *Frame) JPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Release frees the Mat. Only the first call has an effect.
func (f *Frame) Release() {
	if f.released.CompareAndSwap(false, true) {
		f.mat.Close()
	}
}
