package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoFiles is returned when an import carries no file.
	ErrNoFiles = errors.New("no file provided")

	// ErrTooManyFiles is returned when an import exceeds MaxFiles.
	ErrTooManyFiles = errors.New("too many files")

	// ErrRecordNotFound is returned for an ID absent from the record set.
	ErrRecordNotFound = errors.New("record not found")
)

// ImportTimeout is the maximum duration of one import.
var ImportTimeout = 2 * time.Minute

// RecordAssigner links records to a client. It is satisfied by the
// client store.
type RecordAssigner interface {
	AssignRecords(ctx context.Context, recordIDs []string, clientID string) error
}

// ServiceConfig tunes import handling.
type ServiceConfig struct {
	MaxFiles     int // per import; 0 means unlimited
	ParseWorkers int // concurrent file parses; 0 means one per file
}

// Service owns the in-memory measurement set of a running process.
// Records are never persisted; only their client assignments are.
type Service struct {
	assigner RecordAssigner
	limiter  *ImportLimiter
	cfg      ServiceConfig

	mu      sync.RWMutex
	records []Record // newest first, unique IDs
}

// NewService creates a Service. A nil limiter selects the defaults.
func NewService(assigner RecordAssigner, limiter *ImportLimiter, cfg ServiceConfig) *Service {
	if limiter == nil {
		limiter = NewImportLimiter(0, 0)
	}
	return &Service{
		assigner: assigner,
		limiter:  limiter,
		cfg:      cfg,
	}
}

// Limiter returns the import limiter, for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ListCharts returns the chartable metric definitions in display order.
func (s *Service) ListCharts() []ChartDefinition {
	return All()
}

// ListChartsByGroup returns chart definitions organized by group.
func (s *Service) ListChartsByGroup() map[string][]ChartDefinition {
	result := make(map[string][]ChartDefinition)
	for _, group := range Groups() {
		result[group] = ByGroup(group)
	}
	return result
}

// ImportDeviceFiles parses raw device exports and merges them into the
// record set. Files that fail to parse contribute nothing.
func (s *Service) ImportDeviceFiles(ctx context.Context, files []DeviceFile) (*ImportResult, error) {
	if err := s.checkFileCount(len(files)); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	parsed, err := ParseDeviceFiles(ctx, files, s.cfg.ParseWorkers)
	if err != nil {
		return nil, fmt.Errorf("import device files: %w", err)
	}

	result := s.merge(parsed)
	result.Files = len(files)
	result.Duration = time.Since(start)

	slog.Info("device import completed",
		"import_id", result.ID,
		"files", result.Files,
		"parsed", result.Parsed,
		"added", result.Added,
		"replaced", result.Replaced,
		"client_ip", ClientIPFromContext(ctx),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// ImportRoundTrip re-imports one of our own CSV exports. When clientID is
// set, every parsed record is assigned to that client.
func (s *Service) ImportRoundTrip(ctx context.Context, name string, r io.Reader, clientID string) (*ImportResult, error) {
	start := time.Now()
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	parsed, err := ParseRoundTripCSV(r)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("import %s: %w", name, err)
	}
	parsed = DedupByID(parsed)

	if clientID != "" && len(parsed) > 0 {
		if s.assigner == nil {
			return nil, errors.New("import: no client store configured")
		}
		ids := make([]string, len(parsed))
		for i := range parsed {
			ids[i] = parsed[i].ID
		}
		if err := s.assigner.AssignRecords(ctx, ids, clientID); err != nil {
			return nil, fmt.Errorf("assign imported records: %w", err)
		}
	}

	result := s.merge(parsed)
	result.Files = 1
	result.Duration = time.Since(start)

	slog.Info("round-trip import completed",
		"import_id", result.ID,
		"file", name,
		"parsed", result.Parsed,
		"added", result.Added,
		"client", clientID,
		"client_ip", ClientIPFromContext(ctx),
	)

	return result, nil
}

func (s *Service) checkFileCount(n int) error {
	if n == 0 {
		return ErrNoFiles
	}
	if s.cfg.MaxFiles > 0 && n > s.cfg.MaxFiles {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyFiles, n, s.cfg.MaxFiles)
	}
	return nil
}

// merge folds parsed into the record set. A parsed record replaces an
// existing one with the same ID.
func (s *Service) merge(parsed []Record) *ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.records))
	for i, r := range s.records {
		index[r.ID] = i
	}

	result := &ImportResult{ID: uuid.New().String(), Parsed: len(parsed)}
	for _, r := range parsed {
		if i, ok := index[r.ID]; ok {
			s.records[i] = r
			result.Replaced++
			continue
		}
		index[r.ID] = len(s.records)
		s.records = append(s.records, r)
		result.Added++
	}

	SortNewestFirst(s.records)
	result.Total = len(s.records)
	return result
}

// Records returns a copy of the record set, newest first.
func (s *Service) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Record looks up one record by ID.
func (s *Service) Record(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.records, func(r Record) bool { return r.ID == id })
	if i < 0 {
		return Record{}, false
	}
	return s.records[i], true
}

// RecordStatus classifies every health indicator of one record.
func (s *Service) RecordStatus(id string) ([]IndicatorStatus, error) {
	rec, ok := s.Record(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return AnnotateRecord(&rec), nil
}

// RecordCount returns the size of the record set.
func (s *Service) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ClearRecords drops every record and returns how many were held.
func (s *Service) ClearRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = nil
	slog.Info("records cleared", "count", n)
	return n
}
