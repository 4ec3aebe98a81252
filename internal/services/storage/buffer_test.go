package storage

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jpegFrame struct {
	err error
}

func (f jpegFrame) Size() (int, int)             { return 1, 1 }
func (f jpegFrame) Image() (image.Image, error) { return nil, errors.New("unused") }
func (f jpegFrame) JPEG() ([]byte, error)        { return []byte{0xFF, 0xD8, 0xFF, 0xD9}, f.err }
func (f jpegFrame) Release()                     {}

type snapshotLog struct {
	rows []models.Snapshot
}

func (l *snapshotLog) Insert(s *models.Snapshot) (int64, error) {
	l.rows = append(l.rows, *s)
	return int64(len(l.rows)), nil
}

func (l *snapshotLog) GetByClass(class int) ([]models.Snapshot, error) { return nil, nil }
func (l *snapshotLog) DeleteAll() error                                { return nil }

func newBuffer(t *testing.T, limit int, repo *snapshotLog) (*BufferService, string) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	cfg := &config.Config{SnapshotDirectory: dir, SnapshotLimit: limit}
	if repo == nil {
		return NewBufferService(cfg, logger.NewNop(), nil), dir
	}
	return NewBufferService(cfg, logger.NewNop(), repo), dir
}

func TestBuffer_LimitPerClass(t *testing.T) {
	buf, _ := newBuffer(t, 2, nil)

	for i := 0; i < 5; i++ {
		buf.AddFrame(jpegFrame{}, 0)
	}
	buf.AddFrame(jpegFrame{}, 1)
	buf.AddFrame(jpegFrame{err: errors.New("encode")}, 2)

	assert.Equal(t, 3, buf.Pending())
}

func TestBuffer_FlushWritesFilesAndRecords(t *testing.T) {
	repo := &snapshotLog{}
	buf, dir := newBuffer(t, 5, repo)
	buf.SetLabeler(func(class int) string { return []string{"rock", "paper"}[class] })

	buf.AddFrame(jpegFrame{}, 0)
	buf.AddFrame(jpegFrame{}, 1)
	buf.FlushImages()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := entries[0].Name() + " " + entries[1].Name()
	assert.True(t, strings.Contains(names, "_0_rock.jpg"))
	assert.True(t, strings.Contains(names, "_1_paper.jpg"))

	require.Len(t, repo.rows, 2)
	assert.Equal(t, int64(4), repo.rows[0].FileSize)
	assert.Zero(t, buf.Pending())

	// counters reset after a flush
	buf.AddFrame(jpegFrame{}, 0)
	assert.Equal(t, 1, buf.Pending())
}

func TestBuffer_RunFlushesOnCancel(t *testing.T) {
	buf, dir := newBuffer(t, 5, nil)
	buf.AddFrame(jpegFrame{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buf.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuffer_RunWithoutInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		buf, dir := newBuffer(t, 5, nil)
		buf.AddFrame(jpegFrame{}, 0)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NotPanics(t, func() { buf.Run(ctx, interval) })

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "flushed on cancel with interval %s", interval)
	}
}
