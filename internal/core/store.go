package core

import (
	"context"
	"sync"

	"incidentdesk/pkg/domain"
)

type memoryState struct {
	records []domain.Record
	ids     map[string]struct{}
}

func newMemoryState() memoryState {
	return memoryState{ids: make(map[string]struct{})}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		records: domain.CloneRecords(s.records),
		ids:     make(map[string]struct{}, len(s.ids)),
	}
	for id := range s.ids {
		cloned.ids[id] = struct{}{}
	}
	return cloned
}

// MemoryStore owns the ordered record collection for one board session.
// Mutations run against a cloned state and are committed only when they
// succeed, so a failed operation never leaves a partial change behind.
type MemoryStore struct {
	mu       sync.RWMutex
	state    memoryState
	revision uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// Transaction is the mutable view handed to RunInTransaction callbacks.
type Transaction struct {
	state   *memoryState
	changes []Change
}

// Action names a store mutation.
type Action string

const (
	ActionAppend Action = "append"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
)

// Change records one mutation applied inside a transaction.
type Change struct {
	Action Action
	ID     string
	Count  int
}

// RunInTransaction applies fn to a copy of the state and commits it when fn
// returns nil. The returned changes describe what was applied.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) ([]Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	tx := &Transaction{state: &working}
	if err := fn(tx); err != nil {
		return nil, err
	}
	if len(tx.changes) == 0 {
		return nil, nil
	}
	s.state = working
	s.revision++
	return tx.changes, nil
}

// Append adds record at the end of the collection.
func (tx *Transaction) Append(record domain.Record) error {
	if record.ID == "" {
		return domain.ErrEmptyID
	}
	if _, exists := tx.state.ids[record.ID]; exists {
		return domain.DuplicateIDError{ID: record.ID}
	}
	tx.state.records = append(tx.state.records, record.Clone())
	tx.state.ids[record.ID] = struct{}{}
	tx.changes = append(tx.changes, Change{Action: ActionAppend, ID: record.ID, Count: 1})
	return nil
}

// Delete removes the record with id and reports whether it existed.
func (tx *Transaction) Delete(id string) bool {
	if _, ok := tx.state.ids[id]; !ok {
		return false
	}
	for i := range tx.state.records {
		if tx.state.records[i].ID != id {
			continue
		}
		tx.state.records = append(tx.state.records[:i], tx.state.records[i+1:]...)
		break
	}
	delete(tx.state.ids, id)
	tx.changes = append(tx.changes, Change{Action: ActionDelete, ID: id, Count: 1})
	return true
}

// Clear empties the collection and returns how many records were removed.
func (tx *Transaction) Clear() int {
	n := len(tx.state.records)
	tx.state.records = nil
	tx.state.ids = make(map[string]struct{})
	tx.changes = append(tx.changes, Change{Action: ActionClear, Count: n})
	return n
}

// Len returns the number of records in the working state.
func (tx *Transaction) Len() int { return len(tx.state.records) }

// Append adds record to the end of the collection. It fails with
// domain.DuplicateIDError when the id is already present.
func (s *MemoryStore) Append(record domain.Record) error {
	_, err := s.RunInTransaction(context.Background(), func(tx *Transaction) error {
		return tx.Append(record)
	})
	return err
}

// DeleteByID removes the record with id. A missing id is a no-op and
// reports false.
func (s *MemoryStore) DeleteByID(id string) (bool, error) {
	var removed bool
	_, err := s.RunInTransaction(context.Background(), func(tx *Transaction) error {
		removed = tx.Delete(id)
		return nil
	})
	return removed, err
}

// ClearAll empties the collection unconditionally.
func (s *MemoryStore) ClearAll() int {
	var n int
	_, _ = s.RunInTransaction(context.Background(), func(tx *Transaction) error {
		n = tx.Clear()
		return nil
	})
	return n
}

// List returns a deep copy of the collection in insertion order.
func (s *MemoryStore) List() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRecords(s.state.records)
}

// Snapshot returns the collection together with the revision it belongs to.
func (s *MemoryStore) Snapshot() ([]domain.Record, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRecords(s.state.records), s.revision
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.records)
}

// Revision is bumped by every committed mutation.
func (s *MemoryStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
