package repository

import (
	"teachablecam/internal/models"
)

// ExampleRepository defines the interface for training example storage.
type ExampleRepository interface {
	// Create operations
	Insert(ex *models.Example) (int64, error)

	// Read operations
	GetAll() ([]models.Example, error)
	CountByClass() (map[int]int, error)

	// Delete operations
	DeleteByClass(class int) error
	DeleteAll() error
}

// SnapshotRepository defines the interface for snapshot metadata.
type SnapshotRepository interface {
	Insert(s *models.Snapshot) (int64, error)
	GetByClass(class int) ([]models.Snapshot, error)
	DeleteAll() error
}
