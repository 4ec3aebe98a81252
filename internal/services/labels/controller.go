// Package labels renders the per-class controls and the page lifecycle and
// tracks which class is armed for training.
package labels

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	"teachablecam/internal/dto"
)

var ErrUnknownClass = errors.New("labels: unknown class")

const noExamplesText = "no examples"

// Publisher receives a snapshot whenever Flush finds the state changed.
type Publisher interface {
	Publish(state dto.State)
}

// Controller owns one control per class plus the page sections.
type Controller struct {
	training  *TrainingState
	publisher Publisher
	names     []string

	// publishMu orders publishes so the last one delivered is the newest.
	publishMu sync.Mutex

	mu        sync.Mutex
	labels    []dto.LabelView
	page      dto.PageState
	published *dto.State
}

// NewController creates a controller in the loading state. names optionally
// labels the classes; missing names fall back to "Class <i>".
func NewController(publisher Publisher, names []string) *Controller {
	return &Controller{
		training:  NewTrainingState(),
		publisher: publisher,
		names:     names,
		page:      dto.PageState{Loading: true},
	}
}

// Training returns the state holder the render loop reads once per tick.
func (c *Controller) Training() *TrainingState {
	return c.training
}

// Setup creates n controls, all without examples and none emphasized.
func (c *Controller) Setup(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.labels = make([]dto.LabelView, n)
	for i := range c.labels {
		c.labels[i] = dto.LabelView{Class: i, Name: c.name(i), Text: noExamplesText}
	}
}

func (c *Controller) name(i int) string {
	if i < len(c.names) {
		return c.names[i]
	}
	return fmt.Sprintf("Class %d", i)
}

// Press arms class i.
func (c *Controller) Press(i int) error {
	if !c.valid(i) {
		return fmt.Errorf("%w: %d", ErrUnknownClass, i)
	}
	c.training.Arm(i)
	return nil
}

// Release disarms training.
func (c *Controller) Release(i int) error {
	if !c.valid(i) {
		return fmt.Errorf("%w: %d", ErrUnknownClass, i)
	}
	c.training.Disarm()
	return nil
}

func (c *Controller) valid(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return i >= 0 && i < len(c.labels)
}

// Update renders class i. Calling it again with the same arguments leaves
// the state unchanged.
func (c *Controller) Update(i, count int, isPredicted bool, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.labels) {
		return
	}

	label := &c.labels[i]
	label.Count = count
	label.Confidence = confidence
	label.Emphasized = isPredicted
	label.Text = StatusText(count, confidence)
}

// ShowCounts sets example counts without a prediction, e.g. for examples
// restored before the camera runs. The text carries no confidence.
func (c *Controller) ShowCounts(counts []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, count := range counts {
		if i >= len(c.labels) {
			break
		}
		label := &c.labels[i]
		label.Count = count
		label.Confidence = 0
		label.Emphasized = false
		label.Text = CountText(count)
	}
}

// CountText is the status text of a class that has not been predicted yet.
func CountText(count int) string {
	if count == 0 {
		return noExamplesText
	}
	return fmt.Sprintf("%d examples", count)
}

// StatusText is the text shown under a class control.
func StatusText(count int, confidence float64) string {
	if count == 0 {
		return noExamplesText
	}
	return fmt.Sprintf("%d examples — %d%%", count, int(math.Round(confidence*100)))
}

// ModelLoaded hides the loading indicator and shows the main container.
func (c *Controller) ModelLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Loading = false
	c.page.MainVisible = true
}

// CameraReady shows the video.
func (c *Controller) CameraReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.VideoVisible = true
	c.page.InfoVisible = false
	c.page.Info = ""
}

// CameraFailed shows msg in the info section. Loading and main keep their
// current visibility.
func (c *Controller) CameraFailed(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.InfoVisible = true
	c.page.Info = msg
	c.page.VideoVisible = false
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() dto.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() dto.State {
	labels := make([]dto.LabelView, len(c.labels))
	copy(labels, c.labels)

	state := dto.State{Type: dto.MessageState, Page: c.page, Labels: labels}
	if armed, ok := c.training.Armed(); ok {
		state.Armed = &armed
	}
	return state
}

// Flush publishes the state if it differs from the last published one and
// reports whether it did.
func (c *Controller) Flush() bool {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	state := c.snapshotLocked()
	if c.published != nil && reflect.DeepEqual(*c.published, state) {
		c.mu.Unlock()
		return false
	}
	c.published = &state
	c.mu.Unlock()

	if c.publisher != nil {
		c.publisher.Publish(state)
	}
	return true
}
