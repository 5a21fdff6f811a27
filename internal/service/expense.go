// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/cache"
	"github.com/budgetbook/budgetbook/internal/metrics"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/repository"
)

// ExpenseStore persists expenses. Criteria passed together are ANDed.
// Lookups that match nothing return repository.ErrExpenseNotFound.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, criteria ...model.Criterion) ([]*model.Expense, error)
	GetExpense(ctx context.Context, criteria ...model.Criterion) (*model.Expense, error)
	CreateExpense(ctx context.Context, e *model.Expense) error
	CreateExpensesIfNone(ctx context.Context, userID string, expenses []*model.Expense) (bool, error)
	UpdateExpense(ctx context.Context, userID string, e *model.Expense) error
	DeleteExpense(ctx context.Context, userID string, id int64) error
	SumByCategory(ctx context.Context, criteria ...model.Criterion) (map[string]decimal.Decimal, error)
}

// ReportCache caches monthly reports per user under a generation that
// InvalidateReports advances. GetReport returns cache.ErrCacheMiss together
// with the generation it consulted; SetReport writes under a given generation.
type ReportCache interface {
	GetReport(ctx context.Context, userID string, year, month int) (model.Report, int64, error)
	SetReport(ctx context.Context, userID string, gen int64, year, month int, report model.Report) error
	InvalidateReports(ctx context.Context, userID string) error
}

// ExpenseFilter narrows ListExpenses. Zero values disable a filter.
type ExpenseFilter struct {
	Category string
	Year     *int
}

func (f ExpenseFilter) criteria(userID string) []model.Criterion {
	criteria := []model.Criterion{model.OwnedBy{UserID: userID}}
	if f.Category != "" {
		criteria = append(criteria, model.CategoryContains{Substring: f.Category})
	}
	if f.Year != nil {
		criteria = append(criteria, model.InYear(*f.Year))
	}
	return criteria
}

// ExpenseService scopes every read and write to one owning user.
// Store errors are logged and returned unchanged. Updates and deletes
// that match nothing are reported through their bool result, not as errors.
type ExpenseService struct {
	store   ExpenseStore
	cache   ReportCache
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewExpenseService creates a new ExpenseService. reports may be nil.
func NewExpenseService(store ExpenseStore, reports ReportCache, recorder metrics.Recorder, logger *slog.Logger) *ExpenseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{
		store:   store,
		cache:   reports,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// ListExpenses returns userID's expenses matching filter, most recent first.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]*model.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, filter.criteria(userID)...)
	if err != nil {
		s.logger.Error("failed to list expenses",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Debug("listed expenses",
		slog.String("user_id", userID),
		slog.Int("count", len(expenses)),
	)
	return expenses, nil
}

// GetExpense returns the expense (id, userID). The bool is false when it
// does not exist or belongs to someone else.
func (s *ExpenseService) GetExpense(ctx context.Context, userID string, id int64) (*model.Expense, bool, error) {
	e, err := s.store.GetExpense(ctx, model.OwnedBy{UserID: userID}, model.HasID{ID: id})
	if err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return nil, false, nil
		}
		s.logger.Error("failed to get expense",
			slog.String("user_id", userID),
			slog.Int64("expense_id", id),
			slog.String("error", err.Error()),
		)
		return nil, false, err
	}
	return e, true, nil
}

// AddExpense stores e owned by userID and sets e.ID. Any caller-supplied
// owner is replaced. A zero Date becomes the current time.
func (s *ExpenseService) AddExpense(ctx context.Context, userID string, e *model.Expense) error {
	e.UserID = userID
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		s.logger.Error("failed to add expense",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.metrics.IncExpenseCreated()
	s.invalidateReports(ctx, userID)

	s.logger.Info("added expense",
		slog.Int64("expense_id", e.ID),
		slog.String("user_id", userID),
	)
	return nil
}

// UpdateExpense overwrites amount, category and date of (e.ID, userID).
// It returns false, nil when no such expense exists for userID, leaving e
// untouched. On success e carries the stored date and owner.
func (s *ExpenseService) UpdateExpense(ctx context.Context, userID string, e *model.Expense) (bool, error) {
	row := *e
	if row.Date.IsZero() {
		row.Date = s.now().UTC()
	}

	if err := s.store.UpdateExpense(ctx, userID, &row); err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			s.metrics.IncExpenseMiss("update")
			s.logger.Warn("no expense to update",
				slog.Int64("expense_id", e.ID),
				slog.String("user_id", userID),
			)
			return false, nil
		}
		s.logger.Error("failed to update expense",
			slog.Int64("expense_id", e.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false, err
	}

	row.UserID = userID
	*e = row
	s.metrics.IncExpenseUpdated()
	s.invalidateReports(ctx, userID)

	s.logger.Info("updated expense",
		slog.Int64("expense_id", e.ID),
		slog.String("user_id", userID),
	)
	return true, nil
}

// DeleteExpense removes (id, userID). It returns false, nil when no such
// expense exists for userID.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID string, id int64) (bool, error) {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			s.metrics.IncExpenseMiss("delete")
			s.logger.Warn("no expense to delete",
				slog.Int64("expense_id", id),
				slog.String("user_id", userID),
			)
			return false, nil
		}
		s.logger.Error("failed to delete expense",
			slog.Int64("expense_id", id),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false, err
	}

	s.metrics.IncExpenseDeleted()
	s.invalidateReports(ctx, userID)

	s.logger.Info("deleted expense",
		slog.Int64("expense_id", id),
		slog.String("user_id", userID),
	)
	return true, nil
}

// ExpenseReport sums userID's expenses per category for one calendar
// month (UTC). Categories without expenses are absent. A month outside
// 1..12 yields an empty report.
func (s *ExpenseService) ExpenseReport(ctx context.Context, userID string, year, month int) (model.Report, error) {
	if month < 1 || month > 12 {
		return model.Report{}, nil
	}

	start := time.Now()
	defer func() { s.metrics.ObserveReportDuration(time.Since(start)) }()

	report, gen, ok := s.cachedReport(ctx, userID, year, month)
	if ok {
		return report, nil
	}

	sums, err := s.store.SumByCategory(ctx, model.OwnedBy{UserID: userID}, model.InMonth(year, month))
	if err != nil {
		s.logger.Error("failed to build expense report",
			slog.String("user_id", userID),
			slog.Int("year", year),
			slog.Int("month", month),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	report = model.Report(sums)

	// gen was read before SumByCategory; a write that lands in between has
	// already moved past it, so this entry can never be served stale.
	if s.cache != nil && gen != noGeneration {
		if err := s.cache.SetReport(ctx, userID, gen, year, month, report); err != nil {
			s.logger.Warn("failed to cache expense report",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	return report, nil
}

// SeedDemoExpenses inserts the sample expenses for model.DemoUserID unless
// that user already has expenses. It reports whether anything was inserted.
// The check and the insert are one store operation, so concurrent seeds
// insert at most once.
func (s *ExpenseService) SeedDemoExpenses(ctx context.Context) (bool, error) {
	expenses := demoExpenses(s.now().UTC())

	inserted, err := s.store.CreateExpensesIfNone(ctx, model.DemoUserID, expenses)
	if err != nil {
		s.logger.Error("failed to seed demo expenses", slog.String("error", err.Error()))
		return false, err
	}
	if !inserted {
		return false, nil
	}

	s.invalidateReports(ctx, model.DemoUserID)

	s.logger.Info("seeded demo expenses",
		slog.String("user_id", model.DemoUserID),
		slog.Int("count", len(expenses)),
	)
	return true, nil
}

func demoExpenses(now time.Time) []*model.Expense {
	sample := []struct {
		amount   int64
		category string
		daysAgo  int
	}{
		{50, "Food", 2},
		{20, "Transport", 1},
		{100, "Rent", 10},
		{15, "Utilities", 5},
	}

	expenses := make([]*model.Expense, 0, len(sample))
	for _, d := range sample {
		expenses = append(expenses, &model.Expense{
			Amount:   decimal.NewFromInt(d.amount),
			Category: d.category,
			Date:     now.AddDate(0, 0, -d.daysAgo),
			UserID:   model.DemoUserID,
		})
	}
	return expenses
}

// noGeneration marks a cache lookup that could not read the generation.
const noGeneration int64 = -1

func (s *ExpenseService) cachedReport(ctx context.Context, userID string, year, month int) (model.Report, int64, bool) {
	if s.cache == nil {
		return nil, noGeneration, false
	}

	report, gen, err := s.cache.GetReport(ctx, userID, year, month)
	if err == nil {
		s.metrics.IncReportCacheHit()
		return report, gen, true
	}

	s.metrics.IncReportCacheMiss()
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("report cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, noGeneration, false
	}
	return nil, gen, false
}

func (s *ExpenseService) invalidateReports(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateReports(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate cached reports",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
