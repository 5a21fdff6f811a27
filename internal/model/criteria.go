package model

import (
	"strings"
	"time"
)

// Criterion is a single predicate over expenses.
// Stores combine criteria with AND. In-memory stores evaluate Matches;
// SQL stores translate each concrete type into a WHERE clause.
type Criterion interface {
	Matches(e *Expense) bool
}

// OwnedBy keeps expenses belonging to UserID. Ownerless expenses never match.
type OwnedBy struct {
	UserID string
}

// Matches implements Criterion.
func (c OwnedBy) Matches(e *Expense) bool {
	return e.HasOwner() && e.UserID == c.UserID
}

// HasID keeps the expense with the given primary key.
type HasID struct {
	ID int64
}

// Matches implements Criterion.
func (c HasID) Matches(e *Expense) bool {
	return e.ID == c.ID
}

// CategoryContains keeps expenses whose category contains Substring,
// ignoring case.
type CategoryContains struct {
	Substring string
}

// Matches implements Criterion.
func (c CategoryContains) Matches(e *Expense) bool {
	return strings.Contains(strings.ToLower(e.Category), strings.ToLower(c.Substring))
}

// DateRange keeps expenses dated in [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

// Matches implements Criterion.
func (c DateRange) Matches(e *Expense) bool {
	return !e.Date.Before(c.From) && e.Date.Before(c.To)
}

// InYear returns the range covering the calendar year in UTC.
func InYear(year int) DateRange {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(1, 0, 0)}
}

// InMonth returns the range covering the calendar month in UTC.
// month must be in 1..12.
func InMonth(year, month int) DateRange {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 1, 0)}
}

// MatchesAll reports whether e satisfies every criterion.
func MatchesAll(e *Expense, criteria ...Criterion) bool {
	for _, c := range criteria {
		if !c.Matches(e) {
			return false
		}
	}
	return true
}
