package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// backupLayout renders BM_Backup_DD-MM-YYYY_HH-MM.json.
const backupLayout = "BM_Backup_02-01-2006_15-04.json"

// BackupFilename names a backup taken at t, in t's location.
func BackupFilename(t time.Time) string {
	return t.Format(backupLayout)
}

// ExportBackup returns the database as indented JSON.
func (s *Store) ExportBackup(ctx context.Context) ([]byte, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(db, "", "  ")
}

// ImportBackup replaces the database with a backup document. It reports
// false, leaving the stored database untouched, unless the document has a
// clients list and an assignments value. The error is only set when the
// valid document could not be saved.
func (s *Store) ImportBackup(ctx context.Context, data []byte) (bool, error) {
	db, ok := decodeBackup(data)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Save(ctx, db); err != nil {
		return false, err
	}

	slog.Info("backup imported", "clients", len(db.Clients), "assignments", len(db.Assignments))
	return true, nil
}

// decodeBackup validates and decodes a backup document.
func decodeBackup(data []byte) (*Database, bool) {
	var probe struct {
		Clients     json.RawMessage `json:"clients"`
		Assignments json.RawMessage `json:"assignments"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		slog.Warn("backup rejected", "error", err)
		return nil, false
	}

	if !isJSONArray(probe.Clients) || !isTruthy(probe.Assignments) {
		slog.Warn("backup rejected", "error", ErrInvalidBackup)
		return nil, false
	}

	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		slog.Warn("backup rejected", "error", err)
		return nil, false
	}
	for _, c := range db.Clients {
		if strings.TrimSpace(c.ID) == "" {
			slog.Warn("backup rejected", "error", ErrInvalidBackup, "reason", "blank client id")
			return nil, false
		}
	}
	db.normalize()
	return &db, true
}

func isJSONArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// isTruthy reports whether raw is present and not null, false, zero or "".
func isTruthy(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	switch v {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f != 0
	}
	return true
}
