// Package render runs the per-frame loop: capture a frame, train on it when a
// class is armed, predict when any class has examples, update the labels and
// release the frame.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"teachablecam/internal/logger"
	"teachablecam/internal/media"
	"teachablecam/internal/services/knn"
)

// DefaultInterval approximates a 60 Hz display refresh.
const DefaultInterval = 16 * time.Millisecond

// FrameSource hands out the latest frame without blocking.
type FrameSource interface {
	Capture() (media.Frame, error)
}

// Classifier trains and queries the model with frames.
type Classifier interface {
	Train(frame media.Frame, class int) error
	ExampleCounts() []int
	Predict(ctx context.Context, frame media.Frame) (knn.Prediction, error)
}

// View renders class status. Flush pushes pending changes out.
type View interface {
	Update(i, count int, isPredicted bool, confidence float64)
	Flush() bool
}

// TrainingState reports the armed class.
type TrainingState interface {
	Armed() (int, bool)
}

type Option func(*Loop)

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithPreview calls publish with a JPEG of the frame every n ticks.
func WithPreview(n int, publish func(jpeg []byte)) Option {
	return func(l *Loop) {
		l.previewEvery = n
		l.preview = publish
	}
}

// WithTrainedHook calls hook with every frame that was trained on, before the
// frame is released.
func WithTrainedHook(hook func(frame media.Frame, class int)) Option {
	return func(l *Loop) { l.onTrained = hook }
}

func WithLogger(lg *logger.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

// Loop drives the ticks. Ticks never overlap: a slow predict postpones the
// next tick instead of racing it.
type Loop struct {
	source     FrameSource
	classifier Classifier
	view       View
	training   TrainingState
	logger     *logger.Logger

	interval     time.Duration
	previewEvery int
	preview      func([]byte)
	onTrained    func(media.Frame, int)
	ticks        uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(source FrameSource, classifier Classifier, view View, training TrainingState, opts ...Option) *Loop {
	l := &Loop{
		source:     source,
		classifier: classifier,
		view:       view,
		training:   training,
		logger:     logger.NewNop(),
		interval:   DefaultInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tick runs one iteration. The captured frame is released exactly once on
// every path out of Tick.
func (l *Loop) Tick(ctx context.Context) error {
	frame, err := l.source.Capture()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	defer frame.Release()

	if class, ok := l.training.Armed(); ok {
		if err := l.classifier.Train(frame, class); err != nil {
			return fmt.Errorf("train class %d: %w", class, err)
		}
		if l.onTrained != nil {
			l.onTrained(frame, class)
		}
	}

	counts := l.classifier.ExampleCounts()
	if hasExamples(counts) {
		prediction, err := l.classifier.Predict(ctx, frame)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}

		for i, count := range counts {
			var confidence float64
			if i < len(prediction.Confidences) {
				confidence = prediction.Confidences[i]
			}
			l.view.Update(i, count, i == prediction.Class, confidence)
		}
	} else {
		for i := range counts {
			l.view.Update(i, 0, false, 0)
		}
	}
	l.view.Flush()

	l.ticks++
	if l.preview != nil && l.previewEvery > 0 && l.ticks%uint64(l.previewEvery) == 0 {
		if data, err := frame.JPEG(); err != nil {
			l.logger.Warning("Preview encode failed: %v", err)
		} else {
			l.preview(data)
		}
	}
	return nil
}

func hasExamples(counts []int) bool {
	for _, c := range counts {
		if c > 0 {
			return true
		}
	}
	return false
}

// Run ticks until ctx is cancelled. Tick errors are logged and the loop goes on.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("Render loop started at %s per tick", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Render loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Warning("Tick failed: %v", err)
			}
		}
	}
}

// Start runs the loop in the background. It is a no-op while running.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		l.Run(ctx)
	}()
}

// Stop cancels the loop and waits for the current tick to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
