package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"

	"teachablecam/internal/models"
)

// ExampleRepository implements repository.ExampleRepository for SQLite.
type ExampleRepository struct {
	db *DB
}

// NewExampleRepository creates a new SQLite example repository.
func NewExampleRepository(db *DB) *ExampleRepository {
	return &ExampleRepository{db: db}
}

// Insert adds a new example to the database.
func (r *ExampleRepository) Insert(ex *models.Example) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO examples (class_index, dimension, features)
		VALUES (?, ?, ?)
	`, ex.Class, len(ex.Features), encodeFeatures(ex.Features))
	if err != nil {
		return 0, fmt.Errorf("failed to insert example: %w", err)
	}

	return result.LastInsertId()
}

// GetAll returns every example in insertion order.
func (r *ExampleRepository) GetAll() ([]models.Example, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, class_index, dimension, features, created_at
		FROM examples ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer rows.Close()

	var examples []models.Example
	for rows.Next() {
		var (
			ex        models.Example
			dimension int
			blob      []byte
		)
		if err := rows.Scan(&ex.ID, &ex.Class, &dimension, &blob, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}

		ex.Features, err = decodeFeatures(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", ex.ID, err)
		}
		examples = append(examples, ex)
	}

	return examples, rows.Err()
}

// CountByClass returns the number of stored examples per class index.
func (r *ExampleRepository) CountByClass() (map[int]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT class_index, COUNT(*) FROM examples GROUP BY class_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to count examples: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var class, count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[class] = count
	}

	return counts, rows.Err()
}

// DeleteByClass removes all examples of one class.
func (r *ExampleRepository) DeleteByClass(class int) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM examples WHERE class_index = ?`, class); err != nil {
		return fmt.Errorf("failed to delete examples: %w", err)
	}
	return nil
}

// DeleteAll removes all examples.
func (r *ExampleRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM examples`); err != nil {
		return fmt.Errorf("failed to delete examples: %w", err)
	}
	return nil
}

// encodeFeatures packs a vector as little-endian float32 values.
func encodeFeatures(features []float32) []byte {
	buf := make([]byte, 4*len(features))
	for i, f := range features {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeFeatures(blob []byte, dimension int) ([]float32, error) {
	if len(blob) != 4*dimension {
		return nil, fmt.Errorf("feature blob has %d bytes, want %d", len(blob), 4*dimension)
	}

	features := make([]float32, dimension)
	for i := range features {
		features[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return features, nil
}
