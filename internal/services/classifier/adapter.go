// Package classifier adapts the k-NN model to frames: it extracts features
// from a frame and trains or queries the model with them.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"teachablecam/internal/logger"
	"teachablecam/internal/media"
	"teachablecam/internal/models"
	"teachablecam/internal/repository"
	"teachablecam/internal/services/features"
	"teachablecam/internal/services/knn"
)

var ErrClassOutOfRange = knn.ErrClassOutOfRange

// Adapter is the classifier consumed by the render loop.
type Adapter struct {
	model     *knn.Classifier
	extractor features.Extractor
	examples  repository.ExampleRepository
	logger    *logger.Logger
}

type Option func(*Adapter)

// WithExampleStore persists every trained example to repo.
func WithExampleStore(repo repository.ExampleRepository) Option {
	return func(a *Adapter) { a.examples = repo }
}

func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Load creates an adapter over a fresh model with numClasses classes and k
// neighbours.
func Load(numClasses, k int, extractor features.Extractor, opts ...Option) (*Adapter, error) {
	if extractor == nil {
		return nil, errors.New("classifier: extractor is required")
	}

	model, err := knn.Load(numClasses, k)
	if err != nil {
		return nil, err
	}

	a := &Adapter{model: model, extractor: extractor, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) NumClasses() int { return a.model.NumClasses() }

// Train adds frame as an example of class. The frame stays owned by the caller.
func (a *Adapter) Train(frame media.Frame, class int) error {
	if class < 0 || class >= a.model.NumClasses() {
		return fmt.Errorf("%w: %d", ErrClassOutOfRange, class)
	}

	vector, err := a.extractor.Extract(frame)
	if err != nil {
		return fmt.Errorf("failed to extract features: %w", err)
	}

	if err := a.model.Add(vector, class); err != nil {
		return err
	}

	if a.examples != nil {
		if _, err := a.examples.Insert(&models.Example{Class: class, Features: vector}); err != nil {
			a.logger.Warning("Example for class %d kept in memory only: %v", class, err)
		}
	}
	return nil
}

// ExampleCounts returns the number of examples per class.
func (a *Adapter) ExampleCounts() []int {
	return a.model.ExampleCounts()
}

// Predict classifies frame. It fails with knn.ErrNoExamples when nothing has
// been trained yet.
func (a *Adapter) Predict(ctx context.Context, frame media.Frame) (knn.Prediction, error) {
	if a.model.Total() == 0 {
		return knn.Prediction{}, knn.ErrNoExamples
	}

	vector, err := a.extractor.Extract(frame)
	if err != nil {
		return knn.Prediction{}, fmt.Errorf("failed to extract features: %w", err)
	}
	return a.model.Predict(ctx, vector)
}

// Restore loads persisted examples into the model and returns how many were
// loaded. Examples for classes the model does not have are skipped.
func (a *Adapter) Restore(ctx context.Context) (int, error) {
	if a.examples == nil {
		return 0, nil
	}

	stored, err := a.examples.GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load examples: %w", err)
	}

	loaded := 0
	for _, ex := range stored {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if err := a.model.Add(ex.Features, ex.Class); err != nil {
			a.logger.Warning("Skipping stored example %d: %v", ex.ID, err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Clear removes the examples of one class, in memory and in the store.
func (a *Adapter) Clear(class int) error {
	if err := a.model.ClearClass(class); err != nil {
		return err
	}
	if a.examples != nil {
		if err := a.examples.DeleteByClass(class); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every example.
func (a *Adapter) ClearAll() error {
	a.model.ClearAll()
	if a.examples != nil {
		return a.examples.DeleteAll()
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.extractor.Close()
}
