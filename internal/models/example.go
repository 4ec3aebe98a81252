package models

import "time"

// Example is a persisted training example: the feature vector of one frame
// labelled with a class index.
type Example struct {
	ID        int64     `json:"id"`
	Class     int       `json:"class"`
	Features  []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
