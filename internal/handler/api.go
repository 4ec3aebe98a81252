package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"teachablecam/internal/logger"
	"teachablecam/internal/services/classifier"
)

// Examples is the part of the classifier the API can reset.
type Examples interface {
	Clear(class int) error
	ClearAll() error
	ExampleCounts() []int
}

// LabelView is refreshed after examples are cleared.
type LabelView interface {
	Update(i, count int, isPredicted bool, confidence float64)
	Flush() bool
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// StateHandler returns the page and label state as JSON.
func StateHandler(controls Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controls.Snapshot())
	}
}

// ClearExamplesHandler handles POST /api/examples/clear. With a "class"
// query parameter only that class is cleared.
func ClearExamplesHandler(examples Examples, view LabelView, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var err error
		if raw := r.URL.Query().Get("class"); raw != "" {
			class, convErr := strconv.Atoi(raw)
			if convErr != nil {
				http.Error(w, "Invalid class", http.StatusBadRequest)
				return
			}
			err = examples.Clear(class)
			if err == nil {
				logger.Info("Cleared examples of class %d", class)
			}
		} else {
			err = examples.ClearAll()
			if err == nil {
				logger.Info("Cleared all examples")
			}
		}
		if errors.Is(err, classifier.ErrClassOutOfRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Error("Failed to clear examples: %v", err)
			http.Error(w, "Failed to clear examples", http.StatusInternalServerError)
			return
		}

		counts := examples.ExampleCounts()
		for i, count := range counts {
			if count == 0 {
				view.Update(i, 0, false, 0)
			}
		}
		view.Flush()

		writeJSON(w, http.StatusOK, map[string][]int{"counts": counts})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
