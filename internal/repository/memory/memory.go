// Package memory is an in-process expense store with the same contract as
// the PostgreSQL repository. Criteria are evaluated with Criterion.Matches.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/repository"
)

// Store keeps expenses in a slice guarded by a mutex.
type Store struct {
	mu     sync.Mutex
	items  []model.Expense
	nextID int64
	err    error
	calls  int
}

// New returns an empty store.
func New() *Store {
	return &Store{nextID: 1}
}

// FailWith makes every following operation return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many store operations were attempted.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Len returns the number of stored expenses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CreateExpense stores a copy of e and assigns its ID.
func (s *Store) CreateExpense(_ context.Context, e *model.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return err
	}
	s.insert(e)
	return nil
}

// CreateExpensesIfNone stores expenses only when userID owns none yet.
func (s *Store) CreateExpensesIfNone(_ context.Context, userID string, expenses []*model.Expense) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return false, err
	}
	owner := model.OwnedBy{UserID: userID}
	for i := range s.items {
		if owner.Matches(&s.items[i]) {
			return false, nil
		}
	}
	for _, e := range expenses {
		s.insert(e)
	}
	return true, nil
}

// GetExpense returns a copy of the first expense matching all criteria.
func (s *Store) GetExpense(_ context.Context, criteria ...model.Criterion) (*model.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	for i := range s.items {
		if model.MatchesAll(&s.items[i], criteria...) {
			e := s.items[i]
			return &e, nil
		}
	}
	return nil, repository.ErrExpenseNotFound
}

// ListExpenses returns copies of matching expenses, most recent first.
func (s *Store) ListExpenses(_ context.Context, criteria ...model.Criterion) ([]*model.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}

	out := make([]*model.Expense, 0)
	for i := range s.items {
		if model.MatchesAll(&s.items[i], criteria...) {
			e := s.items[i]
			out = append(out, &e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

// UpdateExpense overwrites amount, category and date of (e.ID, userID).
func (s *Store) UpdateExpense(_ context.Context, userID string, e *model.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return err
	}
	for i := range s.items {
		stored := &s.items[i]
		if stored.ID == e.ID && stored.UserID == userID {
			stored.Amount = e.Amount.Round(2)
			stored.Category = e.Category
			stored.Date = e.Date.UTC()
			return nil
		}
	}
	return repository.ErrExpenseNotFound
}

// DeleteExpense removes (id, userID).
func (s *Store) DeleteExpense(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrExpenseNotFound
}

// SumByCategory sums matching amounts per category.
func (s *Store) SumByCategory(_ context.Context, criteria ...model.Criterion) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal)
	for i := range s.items {
		e := &s.items[i]
		if model.MatchesAll(e, criteria...) {
			sums[e.Category] = sums[e.Category].Add(e.Amount)
		}
	}
	return sums, nil
}

// begin counts the call and returns the injected failure. Caller holds mu.
func (s *Store) begin() error {
	s.calls++
	return s.err
}

// insert mirrors NUMERIC(18,2) and TIMESTAMPTZ normalization. Caller holds mu.
func (s *Store) insert(e *model.Expense) {
	e.ID = s.nextID
	s.nextID++

	stored := *e
	stored.Amount = stored.Amount.Round(2)
	stored.Date = stored.Date.UTC()
	s.items = append(s.items, stored)
}
