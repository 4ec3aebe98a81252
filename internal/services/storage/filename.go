package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// SnapshotFilename names a snapshot file: <timestamp>_<class>_<label>.jpg.
func SnapshotFilename(ts time.Time, class int, label string) string {
	return fmt.Sprintf("%s_%d_%s.jpg", ts.Format(timestampLayout), class, label)
}

// ParseFilename reverses SnapshotFilename. Labels may contain underscores.
func ParseFilename(filename string) (timestamp time.Time, class int, label string, err error) {
	name := strings.TrimSuffix(filename, ".jpg")
	parts := strings.Split(name, "_")

	if len(parts) < 4 {
		return time.Time{}, 0, "", fmt.Errorf("invalid filename format: %s", filename)
	}

	timestamp, err = time.ParseInLocation(timestampLayout, parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return time.Time{}, 0, "", fmt.Errorf("failed to parse timestamp: %w", err)
	}

	class, err = strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, 0, "", fmt.Errorf("invalid class in %s: %w", filename, err)
	}

	label = strings.Join(parts[3:], "_")
	return timestamp, class, label, nil
}
