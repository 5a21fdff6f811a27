package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/budgetbook/budgetbook/internal/handler/dto"
	"github.com/budgetbook/budgetbook/internal/model"
)

// DemoSeeder inserts sample data.
type DemoSeeder interface {
	SeedDemoExpenses(ctx context.Context) (bool, error)
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	seeder DemoSeeder
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(seeder DemoSeeder, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{seeder: seeder, logger: logger}
}

// SeedDemo handles POST /api/v1/admin/demo-seed. Repeated calls are no-ops.
func (h *AdminHandler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	seeded, err := h.seeder.SeedDemoExpenses(r.Context())
	if err != nil {
		h.logger.Error("demo seed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	status := http.StatusOK
	if seeded {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.SeedResponse{Seeded: seeded, UserID: model.DemoUserID})
}
