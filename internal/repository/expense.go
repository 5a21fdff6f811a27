package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

// ErrExpenseNotFound is returned when no expense matches the lookup.
var ErrExpenseNotFound = errors.New("expense not found")

// Amounts travel as text so NUMERIC never passes through float64.
const expenseColumns = `id, amount::text, category, date, user_id`

// CreateExpense inserts an expense and stores the assigned ID on e.
func (r *Repository) CreateExpense(ctx context.Context, e *model.Expense) error {
	if err := insertExpense(ctx, r.pool, e); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// CreateExpensesIfNone inserts expenses only when userID owns no expense yet.
// Concurrent callers for the same user serialize on a transaction-scoped
// advisory lock, so at most one of them inserts.
func (r *Repository) CreateExpensesIfNone(ctx context.Context, userID string, expenses []*model.Expense) (bool, error) {
	inserted := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('expenses:' || $1))`, userID); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM expenses WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}

		for _, e := range expenses {
			if err := insertExpense(ctx, tx, e); err != nil {
				return err
			}
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed expenses: %w", err)
	}
	return inserted, nil
}

// GetExpense returns the first expense matching all criteria.
func (r *Repository) GetExpense(ctx context.Context, criteria ...model.Criterion) (*model.Expense, error) {
	where, args, err := whereClause(criteria, 1)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` LIMIT 1`

	e, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return e, nil
}

// ListExpenses returns expenses matching all criteria, most recent first.
func (r *Repository) ListExpenses(ctx context.Context, criteria ...model.Criterion) ([]*model.Expense, error) {
	where, args, err := whereClause(criteria, 1)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*model.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// UpdateExpense overwrites amount, category and date of the expense
// identified by (e.ID, userID). Ownership is never changed.
func (r *Repository) UpdateExpense(ctx context.Context, userID string, e *model.Expense) error {
	query := `
		UPDATE expenses
		SET amount = $3::numeric, category = $4, date = $5
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		e.ID,
		userID,
		e.Amount.String(),
		e.Category,
		e.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	return nil
}

// DeleteExpense removes the expense identified by (id, userID).
func (r *Repository) DeleteExpense(ctx context.Context, userID string, id int64) error {
	query := `DELETE FROM expenses WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	return nil
}

// SumByCategory groups matching expenses by category and sums their amounts.
func (r *Repository) SumByCategory(ctx context.Context, criteria ...model.Criterion) (map[string]decimal.Decimal, error) {
	where, args, err := whereClause(criteria, 1)
	if err != nil {
		return nil, err
	}

	query := `SELECT category, SUM(amount)::text FROM expenses WHERE ` + where + ` GROUP BY category`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, total string
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("failed to scan category sum: %w", err)
		}
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sum for %q: %w", category, err)
		}
		sums[category] = amount
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category sums: %w", err)
	}

	return sums, nil
}

// queryRower is satisfied by both the pool and a transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertExpense(ctx context.Context, q queryRower, e *model.Expense) error {
	query := `
		INSERT INTO expenses (amount, category, date, user_id)
		VALUES ($1::numeric, $2, $3, $4)
		RETURNING id
	`

	var owner *string
	if e.HasOwner() {
		owner = &e.UserID
	}

	return q.QueryRow(ctx, query,
		e.Amount.String(),
		e.Category,
		e.Date,
		owner,
	).Scan(&e.ID)
}

// scanExpense scans a row selected with expenseColumns.
func scanExpense(row pgx.Row) (*model.Expense, error) {
	var (
		e      model.Expense
		amount string
		owner  *string
	)

	if err := row.Scan(&e.ID, &amount, &e.Category, &e.Date, &owner); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}

	e.Amount = parsed
	e.Date = e.Date.UTC()
	if owner != nil {
		e.UserID = *owner
	}

	return &e, nil
}
