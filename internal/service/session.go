package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/budgetbook/budgetbook/internal/auth"
	"github.com/budgetbook/budgetbook/internal/model"
)

// ErrUnauthenticated is returned when the request context carries no user.
var ErrUnauthenticated = errors.New("user not authenticated")

// SessionExpenses resolves the user from the request context and delegates
// to ExpenseService. Without a user it fails before touching the store.
type SessionExpenses struct {
	svc    *ExpenseService
	logger *slog.Logger
}

// NewSessionExpenses wraps svc.
func NewSessionExpenses(svc *ExpenseService) *SessionExpenses {
	return &SessionExpenses{svc: svc, logger: svc.logger}
}

func (s *SessionExpenses) userID(ctx context.Context) (string, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		s.logger.Warn("no authenticated user in request context")
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// ListExpenses lists the current user's expenses.
func (s *SessionExpenses) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*model.Expense, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.ListExpenses(ctx, userID, filter)
}

// GetExpense returns one of the current user's expenses.
func (s *SessionExpenses) GetExpense(ctx context.Context, id int64) (*model.Expense, bool, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, false, err
	}
	return s.svc.GetExpense(ctx, userID, id)
}

// AddExpense stores e for the current user.
func (s *SessionExpenses) AddExpense(ctx context.Context, e *model.Expense) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	return s.svc.AddExpense(ctx, userID, e)
}

// UpdateExpense overwrites one of the current user's expenses.
func (s *SessionExpenses) UpdateExpense(ctx context.Context, e *model.Expense) (bool, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return false, err
	}
	return s.svc.UpdateExpense(ctx, userID, e)
}

// DeleteExpense removes one of the current user's expenses.
func (s *SessionExpenses) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return false, err
	}
	return s.svc.DeleteExpense(ctx, userID, id)
}

// ExpenseReport builds the current user's monthly report.
func (s *SessionExpenses) ExpenseReport(ctx context.Context, year, month int) (model.Report, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.ExpenseReport(ctx, userID, year, month)
}
