package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/media"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by Capture before the stream has decoded anything.
var ErrNoFrame = errors.New("camera: no frame decoded yet")

const readRetryDelay = 5 * time.Millisecond

// Source opens the configured webcam through OpenCV.
type Source struct {
	device string
	hint   media.ResolutionHint
	warmup time.Duration
	logger *logger.Logger
}

// NewSource builds a Source from the configuration. The desktop profile asks
// the device for the configured resolution; the mobile profile leaves it
// unconstrained.
func NewSource(cfg *config.Config, logger *logger.Logger) *Source {
	hint := media.ResolutionHint{}
	if cfg.CameraProfile != config.ProfileMobile {
		hint = media.ResolutionHint{Width: cfg.CameraWidth, Height: cfg.CameraHeight}
	}

	return &Source{
		device: cfg.CameraDevice,
		hint:   hint,
		warmup: time.Duration(cfg.CameraWarmupTimeout) * time.Millisecond,
		logger: logger,
	}
}

// Acquire opens the device and waits for the first decoded frame.
func (s *Source) Acquire(ctx context.Context) (media.Stream, error) {
	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return nil, &media.UnsupportedEnvironmentError{Device: s.device, Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, &media.UnsupportedEnvironmentError{Device: s.device}
	}

	if s.hint.Constrained() {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(s.hint.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(s.hint.Height))
	}

	stream := &Stream{
		capture: capture,
		latest:  gocv.NewMat(),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		logger:  s.logger,
	}
	stream.wg.Add(1)
	go stream.readLoop()

	timer := time.NewTimer(s.warmup)
	defer timer.Stop()

	select {
	case <-stream.ready:
		w, h := stream.Size()
		s.logger.Info("Camera %s streaming at %dx%d", s.device, w, h)
		return stream, nil
	case <-ctx.Done():
		stream.Close()
		return nil, ctx.Err()
	case <-timer.C:
		stream.Close()
		return nil, fmt.Errorf("camera %s: no frame within %s", s.device, s.warmup)
	}
}

// Stream keeps the most recent decoded frame of an open device.
type Stream struct {
	capture *gocv.VideoCapture
	logger  *logger.Logger

	mu     sync.Mutex
	latest gocv.Mat
	width  int
	height int

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// readLoop decodes frames until the stream is closed.
func (s *Stream) readLoop() {
	defer s.wg.Done()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if ok := s.capture.Read(&img); !ok || img.Empty() {
			time.Sleep(readRetryDelay)
			continue
		}

		s.mu.Lock()
		s.latest.Close()
		s.latest = img.Clone()
		s.width, s.height = img.Cols(), img.Rows()
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// Capture clones the latest frame. The caller owns the returned Frame.
func (s *Stream) Capture() (media.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest.Empty() {
		return nil, ErrNoFrame
	}
	return NewFrame(s.latest.Clone()), nil
}

// Size returns the dimensions of the latest frame.
func (s *Stream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Close stops the reader and frees the device.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		err = s.capture.Close()

		s.mu.Lock()
		s.latest.Close()
		s.mu.Unlock()
	})
	return err
}
