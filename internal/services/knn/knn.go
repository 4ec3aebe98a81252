// Package knn is a k-nearest-neighbor classifier over feature vectors using
// cosine similarity. Confidence for a class is its share of the top-k votes.
package knn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrNoExamples        = errors.New("knn: no examples have been added")
	ErrDimensionMismatch = errors.New("knn: feature dimension mismatch")
	ErrInvalidConfig     = errors.New("knn: invalid configuration")
	ErrClassOutOfRange   = errors.New("knn: class index out of range")
)

// similarity is evaluated in chunks; ctx is checked between chunks.
const chunkSize = 512

// Prediction is the result of a single Predict call.
type Prediction struct {
	Class       int       `json:"class"`
	Confidences []float64 `json:"confidences"`
}

type example struct {
	class  int
	vector []float32
}

// Classifier stores labelled examples in memory. It is safe for concurrent use.
type Classifier struct {
	numClasses int
	k          int

	mu        sync.RWMutex
	dimension int
	examples  []example
	counts    []int
}

// Load creates an empty classifier for numClasses classes and k neighbours.
func Load(numClasses, k int) (*Classifier, error) {
	if numClasses < 1 {
		return nil, fmt.Errorf("%w: numClasses must be positive, got %d", ErrInvalidConfig, numClasses)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	return &Classifier{
		numClasses: numClasses,
		k:          k,
		counts:     make([]int, numClasses),
	}, nil
}

func (c *Classifier) NumClasses() int { return c.numClasses }

func (c *Classifier) K() int { return c.k }

// Add stores vector as an example of class. The vector is copied and
// normalized; the first example fixes the dimension.
func (c *Classifier) Add(vector []float32, class int) error {
	if class < 0 || class >= c.numClasses {
		return fmt.Errorf("%w: %d", ErrClassOutOfRange, class)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dimension == 0 {
		c.dimension = len(vector)
	} else if len(vector) != c.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, c.dimension, len(vector))
	}

	c.examples = append(c.examples, example{class: class, vector: normalize(vector)})
	c.counts[class]++
	return nil
}

// ExampleCounts returns a copy of the per-class counts.
func (c *Classifier) ExampleCounts() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]int, len(c.counts))
	copy(out, c.counts)
	return out
}

// Total returns the number of stored examples.
func (c *Classifier) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.examples)
}

// ClearClass removes every example of class.
func (c *Classifier) ClearClass(class int) error {
	if class < 0 || class >= c.numClasses {
		return fmt.Errorf("%w: %d", ErrClassOutOfRange, class)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.examples[:0]
	for _, ex := range c.examples {
		if ex.class != class {
			kept = append(kept, ex)
		}
	}
	for i := len(kept); i < len(c.examples); i++ {
		c.examples[i] = example{}
	}
	c.examples = kept
	c.counts[class] = 0
	if len(c.examples) == 0 {
		c.dimension = 0
	}
	return nil
}

// ClearAll removes every example.
func (c *Classifier) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.examples = nil
	c.counts = make([]int, c.numClasses)
	c.dimension = 0
}

type neighbour struct {
	class      int
	similarity float32
}

// Predict classifies vector against all stored examples.
func (c *Classifier) Predict(ctx context.Context, vector []float32) (Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.examples) == 0 {
		return Prediction{}, ErrNoExamples
	}
	if len(vector) != c.dimension {
		return Prediction{}, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, c.dimension, len(vector))
	}

	query := normalize(vector)
	neighbours := make([]neighbour, len(c.examples))
	for i, ex := range c.examples {
		if i%chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return Prediction{}, err
			}
		}
		neighbours[i] = neighbour{class: ex.class, similarity: dot(query, ex.vector)}
	}

	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].similarity > neighbours[j].similarity
	})

	k := c.k
	if k > len(neighbours) {
		k = len(neighbours)
	}

	votes := make([]int, c.numClasses)
	weight := make([]float64, c.numClasses)
	for _, n := range neighbours[:k] {
		votes[n.class]++
		weight[n.class] += float64(n.similarity)
	}

	best := 0
	confidences := make([]float64, c.numClasses)
	for class := range votes {
		confidences[class] = float64(votes[class]) / float64(k)
		if votes[class] > votes[best] || (votes[class] == votes[best] && weight[class] > weight[best]) {
			best = class
		}
	}

	return Prediction{Class: best, Confidences: confidences}, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
