package classifier

import (
	"context"
	"errors"
	"image"
	"testing"

	"teachablecam/internal/media"
	"teachablecam/internal/models"
	"teachablecam/internal/services/knn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorFrame carries its feature vector directly.
type vectorFrame struct {
	vector   []float32
	released int
}

func (f *vectorFrame) Size() (int, int)             { return 1, 1 }
func (f *vectorFrame) Image() (image.Image, error) { return nil, errors.New("not an image") }
func (f *vectorFrame) JPEG() ([]byte, error)        { return nil, errors.New("not an image") }
func (f *vectorFrame) Release()                     { f.released++ }

type passthrough struct {
	calls int
}

func (p *passthrough) Extract(frame media.Frame) ([]float32, error) {
	p.calls++
	return frame.(*vectorFrame).vector, nil
}

func (p *passthrough) Close() error { return nil }

type memoryStore struct {
	examples  []models.Example
	insertErr error
}

func (m *memoryStore) Insert(ex *models.Example) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	ex.ID = int64(len(m.examples) + 1)
	m.examples = append(m.examples, *ex)
	return ex.ID, nil
}

func (m *memoryStore) GetAll() ([]models.Example, error) { return m.examples, nil }

func (m *memoryStore) CountByClass() (map[int]int, error) {
	counts := make(map[int]int)
	for _, ex := range m.examples {
		counts[ex.Class]++
	}
	return counts, nil
}

func (m *memoryStore) DeleteByClass(class int) error {
	kept := m.examples[:0]
	for _, ex := range m.examples {
		if ex.Class != class {
			kept = append(kept, ex)
		}
	}
	m.examples = kept
	return nil
}

func (m *memoryStore) DeleteAll() error {
	m.examples = nil
	return nil
}

func TestAdapter_TrainIncrementsCount(t *testing.T) {
	a, err := Load(3, 10, &passthrough{})
	require.NoError(t, err)

	frame := &vectorFrame{vector: []float32{1, 0}}
	require.NoError(t, a.Train(frame, 1))
	require.NoError(t, a.Train(frame, 1))

	assert.Equal(t, []int{0, 2, 0}, a.ExampleCounts())
	assert.Zero(t, frame.released, "train must not release the caller's frame")

	assert.ErrorIs(t, a.Train(frame, 3), ErrClassOutOfRange)
}

func TestAdapter_PredictRequiresExamples(t *testing.T) {
	extractor := &passthrough{}
	a, err := Load(2, 3, extractor)
	require.NoError(t, err)

	_, err = a.Predict(context.Background(), &vectorFrame{vector: []float32{1}})
	assert.ErrorIs(t, err, knn.ErrNoExamples)
	assert.Zero(t, extractor.calls, "no extraction without examples")
}

func TestAdapter_Predict(t *testing.T) {
	a, err := Load(3, 10, &passthrough{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Train(&vectorFrame{vector: []float32{1, 0.1}}, 0))
	}

	p, err := a.Predict(context.Background(), &vectorFrame{vector: []float32{0.2, 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Class)
	assert.Equal(t, []float64{1, 0, 0}, p.Confidences)
}

func TestAdapter_PersistAndRestore(t *testing.T) {
	store := &memoryStore{}

	a, err := Load(3, 10, &passthrough{}, WithExampleStore(store))
	require.NoError(t, err)
	require.NoError(t, a.Train(&vectorFrame{vector: []float32{1, 0}}, 0))
	require.NoError(t, a.Train(&vectorFrame{vector: []float32{0, 1}}, 2))
	require.Len(t, store.examples, 2)

	// a stored example for a class the new model does not have is skipped
	store.examples = append(store.examples, models.Example{ID: 9, Class: 5, Features: []float32{1, 1}})

	restored, err := Load(3, 10, &passthrough{}, WithExampleStore(store))
	require.NoError(t, err)

	n, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 0, 1}, restored.ExampleCounts())
}

func TestAdapter_StoreFailureKeepsExample(t *testing.T) {
	store := &memoryStore{insertErr: errors.New("disk full")}
	a, err := Load(2, 3, &passthrough{}, WithExampleStore(store))
	require.NoError(t, err)

	require.NoError(t, a.Train(&vectorFrame{vector: []float32{1, 0}}, 0))
	assert.Equal(t, []int{1, 0}, a.ExampleCounts())
}

func TestAdapter_Clear(t *testing.T) {
	store := &memoryStore{}
	a, err := Load(2, 3, &passthrough{}, WithExampleStore(store))
	require.NoError(t, err)

	require.NoError(t, a.Train(&vectorFrame{vector: []float32{1, 0}}, 0))
	require.NoError(t, a.Train(&vectorFrame{vector: []float32{0, 1}}, 1))

	require.NoError(t, a.Clear(0))
	assert.Equal(t, []int{0, 1}, a.ExampleCounts())
	assert.Len(t, store.examples, 1)

	require.NoError(t, a.ClearAll())
	assert.Equal(t, []int{0, 0}, a.ExampleCounts())
	assert.Empty(t, store.examples)
}

func TestLoad_RequiresExtractor(t *testing.T) {
	_, err := Load(2, 3, nil)
	assert.Error(t, err)
}
