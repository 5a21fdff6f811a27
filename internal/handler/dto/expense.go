// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

// ExpenseRequest is the body of POST /expenses and PUT /expenses/{id}.
// Amount accepts a JSON number or string. A missing date means now.
type ExpenseRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required,gte=0.01,lte=1000000"`
	Category string          `json:"category" validate:"required"`
	Date     *time.Time      `json:"date,omitempty"`
}

// Normalize trims the category so blank labels fail validation.
func (r *ExpenseRequest) Normalize() {
	r.Category = strings.TrimSpace(r.Category)
}

// ToModel builds an unsaved expense. id is zero for creation.
func (r *ExpenseRequest) ToModel(id int64) *model.Expense {
	e := &model.Expense{
		ID:       id,
		Amount:   r.Amount,
		Category: r.Category,
	}
	if r.Date != nil {
		e.Date = r.Date.UTC()
	}
	return e
}

// ExpenseResponse represents an expense in API responses.
// Ownership is implied by the caller's key and not echoed.
type ExpenseResponse struct {
	ID       int64     `json:"id"`
	Amount   string    `json:"amount"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
}

// ExpenseListResponse wraps a list of expenses.
type ExpenseListResponse struct {
	Data  []ExpenseResponse `json:"data"`
	Count int               `json:"count"`
}

// ReportResponse represents a monthly category report.
type ReportResponse struct {
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Categories map[string]string `json:"categories"`
	Total      string            `json:"total"`
}

// SeedResponse reports whether demo data was inserted.
type SeedResponse struct {
	Seeded bool   `json:"seeded"`
	UserID string `json:"user_id"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ToExpenseResponse converts an Expense model to its DTO.
func ToExpenseResponse(e *model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:       e.ID,
		Amount:   e.Amount.StringFixed(2),
		Category: e.Category,
		Date:     e.Date,
	}
}

// ToExpenseListResponse converts a slice of expenses, keeping order.
func ToExpenseListResponse(expenses []*model.Expense) ExpenseListResponse {
	data := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		data = append(data, ToExpenseResponse(e))
	}
	return ExpenseListResponse{Data: data, Count: len(data)}
}

// ToReportResponse converts a report for year/month.
func ToReportResponse(year, month int, report model.Report) ReportResponse {
	categories := make(map[string]string, len(report))
	for category, amount := range report {
		categories[category] = amount.StringFixed(2)
	}
	return ReportResponse{
		Year:       year,
		Month:      month,
		Categories: categories,
		Total:      report.Total().StringFixed(2),
	}
}
