package store

import (
	"context"
	"errors"
)

// Clients returns every client in creation order.
func (s *Store) Clients(ctx context.Context) ([]Client, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return db.Clients, nil
}

// ClientCounts returns the number of assigned records per client. Every
// client is present, with zero if it has none. Assignments to unknown
// clients are not counted.
func (s *Store) ClientCounts(ctx context.Context) (map[string]int, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(db.Clients))
	for _, c := range db.Clients {
		counts[c.ID] = 0
	}
	for _, clientID := range db.Assignments {
		if _, ok := counts[clientID]; ok {
			counts[clientID]++
		}
	}
	return counts, nil
}

// AddClient creates a client. It reports false, without saving, when the
// ID already exists. An empty alias defaults to the ID.
func (s *Store) AddClient(ctx context.Context, id, alias string) (bool, error) {
	added := false
	err := s.Update(ctx, func(db *Database) error {
		if db.clientIndex(id) >= 0 {
			return ErrSkipSave
		}
		if alias == "" {
			alias = id
		}
		db.Clients = append(db.Clients, Client{
			ID:        id,
			Alias:     alias,
			CreatedAt: s.now().UnixMilli(),
		})
		added = true
		return nil
	})
	return added, err
}

// DeleteClient removes a client and every assignment pointing to it.
// Measurement records themselves are not touched.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	return s.Update(ctx, func(db *Database) error {
		kept := db.Clients[:0]
		for _, c := range db.Clients {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		db.Clients = kept

		for recordID, clientID := range db.Assignments {
			if clientID == id {
				delete(db.Assignments, recordID)
			}
		}
		return nil
	})
}

// RenameClient changes a client's alias. It reports false if the client
// does not exist.
func (s *Store) RenameClient(ctx context.Context, id, alias string) (bool, error) {
	err := s.Update(ctx, func(db *Database) error {
		i := db.clientIndex(id)
		if i < 0 {
			return ErrClientNotFound
		}
		db.Clients[i].Alias = alias
		return nil
	})
	if errors.Is(err, ErrClientNotFound) {
		return false, nil
	}
	return err == nil, err
}

// UpdateNotes replaces a client's private notes.
func (s *Store) UpdateNotes(ctx context.Context, id, notes string) error {
	return s.Update(ctx, func(db *Database) error {
		i := db.clientIndex(id)
		if i < 0 {
			return ErrClientNotFound
		}
		db.Clients[i].Notes = notes
		return nil
	})
}

// AssignRecord links a record to a client, replacing any previous link.
func (s *Store) AssignRecord(ctx context.Context, recordID, clientID string) error {
	return s.AssignRecords(ctx, []string{recordID}, clientID)
}

// AssignRecords links several records to one client in a single cycle.
func (s *Store) AssignRecords(ctx context.Context, recordIDs []string, clientID string) error {
	return s.Update(ctx, func(db *Database) error {
		for _, id := range recordIDs {
			db.Assignments[id] = clientID
		}
		return nil
	})
}

// UnassignRecord moves a record back to the inbox.
func (s *Store) UnassignRecord(ctx context.Context, recordID string) error {
	return s.Update(ctx, func(db *Database) error {
		if _, ok := db.Assignments[recordID]; !ok {
			return ErrSkipSave
		}
		delete(db.Assignments, recordID)
		return nil
	})
}

// ClientForRecord returns the owner of a record, or false if unassigned.
func (s *Store) ClientForRecord(ctx context.Context, recordID string) (string, bool, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return "", false, err
	}
	clientID, ok := db.Assignments[recordID]
	if !ok || clientID == "" {
		return "", false, nil
	}
	return clientID, true, nil
}

// AssignmentCount returns the number of linked records.
func (s *Store) AssignmentCount(ctx context.Context) (int, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(db.Assignments), nil
}

// Assignments returns a copy of the record to client mapping.
func (s *Store) Assignments(ctx context.Context) (map[string]string, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return db.Assignments, nil
}
