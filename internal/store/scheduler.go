package store

// scheduler.go pushes periodic snapshots of the client database to the
// backup archive. It runs once at start and then every interval until the
// context ends. A failed run is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// Archiver receives backup snapshots.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// DefaultArchiveInterval is used when the configured interval is not positive.
const DefaultArchiveInterval = 24 * time.Hour

// StartArchiveScheduler blocks, archiving a snapshot every interval.
func (s *Store) StartArchiveScheduler(ctx context.Context, archive Archiver, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultArchiveInterval
	}
	slog.Info("archive scheduler started", "interval", interval.String())

	s.runArchiveJob(ctx, archive)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("archive scheduler stopped")
			return
		case <-ticker.C:
			s.runArchiveJob(ctx, archive)
		}
	}
}

func (s *Store) runArchiveJob(ctx context.Context, archive Archiver) {
	start := time.Now()

	key, err := s.ArchiveBackup(ctx, archive)
	if err != nil {
		slog.Error("archive failed", "error", err)
		return
	}

	slog.Info("archive job completed",
		"key", key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// ArchiveBackup uploads one snapshot named after the current time and
// returns its key. A nil archive yields ErrArchiveDisabled.
func (s *Store) ArchiveBackup(ctx context.Context, archive Archiver) (string, error) {
	if archive == nil {
		return "", ErrArchiveDisabled
	}

	data, err := s.ExportBackup(ctx)
	if err != nil {
		return "", err
	}
	return archive.Put(ctx, BackupFilename(s.now()), data)
}
