// Package demo sequences startup: controls first, then the model, then the
// camera, then the render loop.
package demo

import (
	"context"
	"errors"
	"fmt"

	"teachablecam/internal/logger"
	"teachablecam/internal/media"
)

// FallbackMessage is shown when the host has no usable camera.
const FallbackMessage = "This device does not support video capture, or it does not have a camera."

// Page is the part of the label controller the lifecycle drives.
type Page interface {
	Setup(n int)
	ModelLoaded()
	CameraReady()
	CameraFailed(msg string)
	Flush() bool
}

// Loop is a started render loop.
type Loop interface {
	Start(ctx context.Context)
	Stop()
}

type Deps struct {
	NumClasses int
	Page       Page
	// LoadModel loads the classifier. Its error is returned as is.
	LoadModel func(ctx context.Context) error
	Camera    media.Source
	// NewLoop builds the render loop over an acquired stream.
	NewLoop func(stream media.Stream) Loop
	Logger  *logger.Logger
}

// Run brings the demo up and blocks until ctx is cancelled. A camera failure
// is shown on the page and returned; the controls stay rendered.
func Run(ctx context.Context, d Deps) error {
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}

	d.Page.Setup(d.NumClasses)
	d.Page.Flush()

	if err := d.LoadModel(ctx); err != nil {
		return err
	}
	d.Page.ModelLoaded()
	d.Page.Flush()
	log.Info("Model loaded with %d classes", d.NumClasses)

	stream, err := d.Camera.Acquire(ctx)
	if err != nil {
		msg := FallbackMessage
		if !errors.Is(err, media.ErrUnsupportedEnvironment) {
			msg = fmt.Sprintf("Could not start the camera: %v", err)
		}
		d.Page.CameraFailed(msg)
		d.Page.Flush()
		return fmt.Errorf("acquire camera: %w", err)
	}
	defer stream.Close()

	d.Page.CameraReady()
	d.Page.Flush()

	loop := d.NewLoop(stream)
	loop.Start(ctx)
	defer loop.Stop()

	<-ctx.Done()
	return nil
}
