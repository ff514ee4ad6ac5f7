// Package store persists client profiles and record assignments.
//
// The whole database is one JSON document kept in a Blob. Every change is a
// load, mutate, save cycle over that document; a Store serializes the
// cycles issued through it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrClientExists is returned when adding a client whose ID is taken.
	ErrClientExists = errors.New("client already exists")

	// ErrClientNotFound is returned for operations on an unknown client.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidBackup is returned when a backup document fails validation.
	ErrInvalidBackup = errors.New("invalid backup file format")

	// ErrSkipSave may be returned from an Update callback to end the cycle
	// without writing. Update then returns nil.
	ErrSkipSave = errors.New("skip save")
)

// CurrentVersion is the schema version written to new databases.
const CurrentVersion = 1

// Client is one client profile. IDs are opaque codes chosen by the user.
type Client struct {
	ID        string `json:"id"`
	Alias     string `json:"alias"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
}

// Database is the persisted document.
type Database struct {
	Version     int               `json:"version"`
	Clients     []Client          `json:"clients"`
	Assignments map[string]string `json:"assignments"` // record ID -> client ID
}

// NewDatabase returns the empty default database.
func NewDatabase() *Database {
	return &Database{
		Version:     CurrentVersion,
		Clients:     []Client{},
		Assignments: map[string]string{},
	}
}

// normalize replaces nil collections so the document always encodes as
// {"clients": [], "assignments": {}}.
func (d *Database) normalize() {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}
	if d.Clients == nil {
		d.Clients = []Client{}
	}
	if d.Assignments == nil {
		d.Assignments = map[string]string{}
	}
}

func (d *Database) clientIndex(id string) int {
	for i, c := range d.Clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Store is the handle every client and assignment operation goes through.
type Store struct {
	blob Blob
	now  func() time.Time

	mu sync.Mutex
}

// New creates a Store over blob.
func New(blob Blob) *Store {
	return &Store{blob: blob, now: time.Now}
}

// Load reads the database. A missing document yields the empty default;
// an unparseable one is logged and also replaced by the default.
func (s *Store) Load(ctx context.Context) (*Database, error) {
	data, err := s.blob.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load database: %w", err)
	}
	if len(data) == 0 {
		return NewDatabase(), nil
	}

	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		slog.Error("client database unreadable, using empty default", "error", err)
		return NewDatabase(), nil
	}
	db.normalize()
	return &db, nil
}

// Save writes db as the whole persisted document.
func (s *Store) Save(ctx context.Context, db *Database) error {
	db.normalize()
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	if err := s.blob.Save(ctx, data); err != nil {
		return fmt.Errorf("save database: %w", err)
	}
	return nil
}

// Update runs one load, mutate, save cycle. If fn fails nothing is saved
// and the error is returned, except ErrSkipSave which yields nil.
func (s *Store) Update(ctx context.Context, fn func(db *Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.Load(ctx)
	if err != nil {
		return err
	}

	if err := fn(db); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return nil
		}
		return err
	}

	return s.Save(ctx, db)
}

// DeleteAll removes the persisted document. The next Load returns the
// empty default.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blob.Delete(ctx); err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	slog.Info("client database deleted")
	return nil
}
