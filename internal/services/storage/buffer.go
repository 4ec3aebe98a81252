package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/media"
	"teachablecam/internal/models"
	"teachablecam/internal/repository"
)

// Image is a buffered JPEG of a trained frame.
type Image struct {
	Timestamp time.Time
	Class     int
	Label     string
	Data      []byte
}

// BufferService keeps a few trained frames per class in memory and
// periodically writes them to disk.
type BufferService struct {
	imagesDir    string
	images       []Image
	bufferLimit  int
	bufferCount  map[int]int
	labelFor     func(class int) string
	snapshotRepo repository.SnapshotRepository
	logger       *logger.Logger
	mu           sync.Mutex
}

// NewBufferService creates a BufferService. snapshotRepo may be nil.
func NewBufferService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) *BufferService {
	return &BufferService{
		imagesDir:    config.SnapshotDirectory,
		images:       make([]Image, 0),
		bufferLimit:  config.SnapshotLimit,
		bufferCount:  make(map[int]int),
		labelFor:     func(class int) string { return fmt.Sprintf("class%d", class) },
		snapshotRepo: snapshotRepo,
		logger:       logger,
	}
}

// SetLabeler changes how class indices are named in file names.
func (s *BufferService) SetLabeler(labelFor func(class int) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labelFor = labelFor
}

// DefaultFlushInterval is used when Run is given a non-positive interval.
const DefaultFlushInterval = 30 * time.Second

// Run flushes the buffer every interval until ctx is cancelled, then flushes
// one last time.
func (s *BufferService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warning("Invalid snapshot flush interval %s, using %s", interval, DefaultFlushInterval)
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// AddFrame encodes frame and buffers it for class. Frames beyond the
// per-class limit are ignored until the next flush.
func (s *BufferService) AddFrame(frame media.Frame, class int) {
	s.mu.Lock()
	full := s.bufferCount[class] >= s.bufferLimit
	s.mu.Unlock()
	if full {
		return
	}

	data, err := frame.JPEG()
	if err != nil {
		s.logger.Warning("Snapshot of class %d skipped: %v", class, err)
		return
	}
	s.AddImage(data, class)
}

// AddImage appends a JPEG to the in-memory buffer for class.
func (s *BufferService) AddImage(imageData []byte, class int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[class] >= s.bufferLimit {
		return
	}

	s.images = append(s.images, Image{
		Timestamp: time.Now(),
		Class:     class,
		Label:     s.labelFor(class),
		Data:      imageData,
	})
	s.bufferCount[class]++
	s.logger.Debug("Snapshot buffer for class %d: %d/%d", class, s.bufferCount[class], s.bufferLimit)
}

// FlushImages writes buffered images to disk and resets the buffer and
// per-class counters.
func (s *BufferService) FlushImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	written := 0
	for _, image := range s.images {
		filename := SnapshotFilename(image.Timestamp, image.Class, image.Label)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}
		written++

		if s.snapshotRepo == nil {
			continue
		}
		if _, err := s.snapshotRepo.Insert(&models.Snapshot{
			Filename:  filename,
			Class:     image.Class,
			Label:     image.Label,
			Timestamp: image.Timestamp,
			FilePath:  fullpath,
			FileSize:  int64(len(image.Data)),
		}); err != nil {
			s.logger.Error("Error recording snapshot %s: %v", filename, err)
		}
	}

	s.logger.Info("Flushed %d snapshots to disk", written)
	s.images = s.images[:0]
	s.bufferCount = make(map[int]int)
}

// Pending returns the number of buffered images.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}
