package sqlite

import (
	"fmt"

	"teachablecam/internal/models"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a new snapshot record to the database.
func (r *SnapshotRepository) Insert(s *models.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (filename, class_index, label, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Filename, s.Class, s.Label, s.Timestamp, s.FilePath, s.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetByClass returns snapshots of one class, newest first.
func (r *SnapshotRepository) GetByClass(class int) ([]models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, filename, class_index, label, timestamp, filepath, filesize
		FROM snapshots WHERE class_index = ? ORDER BY timestamp DESC, id DESC
	`, class)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.Filename, &s.Class, &s.Label, &s.Timestamp, &s.FilePath, &s.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// DeleteAll removes all snapshot records.
func (r *SnapshotRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}
