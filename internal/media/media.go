// Package media holds the contracts between the camera, the classifier and
// the render loop. Implementations backed by OpenCV live in package camera.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrUnsupportedEnvironment is matched by UnsupportedEnvironmentError.
var ErrUnsupportedEnvironment = errors.New("media capture is not supported in this environment")

// Frame is a single captured image. Its backing buffer is not reclaimed by
// the garbage collector, so every Frame must be released once its owner is
// done with it. Release is safe to call more than once.
type Frame interface {
	Size() (width, height int)
	// Image returns a Go copy of the pixels.
	Image() (image.Image, error)
	// JPEG encodes the frame for previews and snapshots.
	JPEG() ([]byte, error)
	Release()
}

// Stream is a live camera stream.
type Stream interface {
	// Capture returns a snapshot of the latest decoded frame without blocking.
	Capture() (Frame, error)
	Size() (width, height int)
	Close() error
}

// Source opens a Stream. Acquire returns only after the first frame has been
// decoded, so the frame dimensions are known before any Capture.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// ResolutionHint is the size requested from the device. The zero value means
// unconstrained.
type ResolutionHint struct {
	Width  int
	Height int
}

// Constrained reports whether the hint carries a fixed resolution.
func (h ResolutionHint) Constrained() bool {
	return h.Width > 0 && h.Height > 0
}

// UnsupportedEnvironmentError is returned when the host offers no usable
// capture device.
type UnsupportedEnvironmentError struct {
	Device string
	Err    error
}

func (e *UnsupportedEnvironmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera %q: %v: %v", e.Device, ErrUnsupportedEnvironment, e.Err)
	}
	return fmt.Sprintf("camera %q: %v", e.Device, ErrUnsupportedEnvironment)
}

func (e *UnsupportedEnvironmentError) Unwrap() error {
	return e.Err
}

func (e *UnsupportedEnvironmentError) Is(target error) bool {
	return target == ErrUnsupportedEnvironment
}
