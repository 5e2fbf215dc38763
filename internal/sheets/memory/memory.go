// Package memory provides an in-memory backup mirror used by tests and the
// demo backend, standing in for the Google Sheets adapter.
package memory

import (
	"context"
	"fmt"
	"sync"

	"conti/internal/core"
	ports "conti/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	items map[int64]core.Expense
	seq   int
}

var (
	_ ports.BackupWriter  = (*Store)(nil)
	_ ports.BackupDeleter = (*Store)(nil)
)

func New() *Store {
	return &Store{items: make(map[int64]core.Expense)}
}

// AppendExpense stores the expense and returns a synthetic row reference.
// Mirroring the same ID twice overwrites the earlier copy, matching the
// freshest-version-wins behaviour of the real sheet.
func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == 0 {
		return "", fmt.Errorf("expense has no ID, cannot mirror")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[e.ID] = e
	s.seq++
	return fmt.Sprintf("mem:%d", s.seq), nil
}

// DeleteExpense removes the mirrored row. Missing rows are a no-op.
func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Get reports the mirrored copy of an expense, for assertions in tests.
func (s *Store) Get(id int64) (core.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	return e, ok
}

// Len reports how many rows are mirrored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
