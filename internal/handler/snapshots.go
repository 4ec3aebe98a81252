package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/repository"
)

// GetSnapshotsHandler lists the recorded snapshots of one class.
func GetSnapshotsHandler(snapshotRepo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, err := strconv.Atoi(r.URL.Query().Get("class"))
		if err != nil {
			http.Error(w, "Class parameter is required", http.StatusBadRequest)
			return
		}

		snapshots, err := snapshotRepo.GetByClass(class)
		if err != nil {
			logger.Error("Error querying snapshots: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, snapshots)
	}
}

// ViewSnapshotHandler serves a single snapshot named by the "image" query parameter.
func ViewSnapshotHandler(config *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(config.SnapshotDirectory, filepath.Base(image))
		http.ServeFile(w, r, filePath)
	}
}
