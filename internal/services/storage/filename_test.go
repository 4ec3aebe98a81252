package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 11, 12, 345000000, time.Local)
	name := SnapshotFilename(ts, 2, "thumbs_up")
	assert.Equal(t, "2026-03-04_10-11-12.345_2_thumbs_up.jpg", name)

	parsed, class, label, err := ParseFilename(name)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
	assert.Equal(t, 2, class)
	assert.Equal(t, "thumbs_up", label)
}

func TestParseFilename_Invalid(t *testing.T) {
	for _, name := range []string{
		"photo.jpg",
		"2026-03-04_10-11-12.345_x_rock.jpg",
		"yesterday_noon_1_rock.jpg",
	} {
		_, _, _, err := ParseFilename(name)
		assert.Error(t, err, name)
	}
}
