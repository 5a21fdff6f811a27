// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemoUserID is the well-known owner of the sample expenses.
const DemoUserID = "demo-user-0001"

// Amount bounds accepted at the request boundary.
var (
	MinAmount = decimal.RequireFromString("0.01")
	MaxAmount = decimal.NewFromInt(1_000_000)
)

// Expense represents a single monetary outlay owned by one user.
type Expense struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
	UserID   string          `json:"user_id,omitempty"`
}

// HasOwner reports whether the expense has been assigned to a user.
func (e *Expense) HasOwner() bool {
	return e.UserID != ""
}

// Report maps a category to the summed amount of its expenses.
type Report map[string]decimal.Decimal

// Total returns the sum over all categories.
func (r Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range r {
		total = total.Add(amount)
	}
	return total
}
