package labels

import "sync"

const none = -1

// TrainingState holds the armed class. It starts unarmed and changes only on
// press and release.
type TrainingState struct {
	mu    sync.RWMutex
	armed int
}

func NewTrainingState() *TrainingState {
	return &TrainingState{armed: none}
}

// Arm selects class for training.
func (s *TrainingState) Arm(class int) {
	s.mu.Lock()
	s.armed = class
	s.mu.Unlock()
}

// Disarm clears the armed class. A single pointer is assumed, so any release
// disarms regardless of which control it came from.
func (s *TrainingState) Disarm() {
	s.mu.Lock()
	s.armed = none
	s.mu.Unlock()
}

// Armed returns the armed class and whether one is armed.
func (s *TrainingState) Armed() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.armed, s.armed != none
}
