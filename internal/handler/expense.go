package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/budgetbook/budgetbook/internal/handler/dto"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/service"
)

// Expenses is the session-scoped expense API the handlers call.
type Expenses interface {
	ListExpenses(ctx context.Context, filter service.ExpenseFilter) ([]*model.Expense, error)
	GetExpense(ctx context.Context, id int64) (*model.Expense, bool, error)
	AddExpense(ctx context.Context, e *model.Expense) error
	UpdateExpense(ctx context.Context, e *model.Expense) (bool, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	ExpenseReport(ctx context.Context, year, month int) (model.Report, error)
}

// ExpenseHandler handles HTTP requests for expense operations.
type ExpenseHandler struct {
	svc       Expenses
	validator *dto.Validator
	logger    *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc Expenses, validator *dto.Validator, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		svc:       svc,
		validator: validator,
		logger:    logger,
	}
}

// List handles GET /api/v1/expenses?category=&year=.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ExpenseFilter{Category: q.Get("category")}

	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
			return
		}
		filter.Year = &year
	}

	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseListResponse(expenses))
}

// Create handles POST /api/v1/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	e := req.ToModel(0)
	if err := h.svc.AddExpense(r.Context(), e); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToExpenseResponse(e))
}

// Get handles GET /api/v1/expenses/{id}.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	e, found, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "EXPENSE_NOT_FOUND", "Expense not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(e))
}

// Update handles PUT /api/v1/expenses/{id}. Every mutable field is replaced.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	e := req.ToModel(id)
	found, err := h.svc.UpdateExpense(r.Context(), e)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "EXPENSE_NOT_FOUND", "Expense not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(e))
}

// Delete handles DELETE /api/v1/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, err := h.svc.DeleteExpense(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "EXPENSE_NOT_FOUND", "Expense not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /api/v1/reports/{year}/{month}.
func (h *ExpenseHandler) Report(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
		return
	}

	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "INVALID_MONTH", "month must be between 1 and 12")
		return
	}

	report, err := h.svc.ExpenseReport(r.Context(), year, month)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReportResponse(year, month, report))
}

func (h *ExpenseHandler) decode(w http.ResponseWriter, r *http.Request) (*dto.ExpenseRequest, bool) {
	var req dto.ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return nil, false
	}
	req.Normalize()

	if err := h.validator.Struct(&req); err != nil {
		var verr *dto.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
				Error:  "Validation failed",
				Code:   "VALIDATION_ERROR",
				Fields: verr.Fields,
			})
			return nil, false
		}
		h.logger.Error("validator failure", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return nil, false
	}

	return &req, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Expense ID must be a positive integer")
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *ExpenseHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
