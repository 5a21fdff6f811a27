package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/budgetbook/budgetbook/internal/auth"
	"github.com/budgetbook/budgetbook/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithScopes(scopes ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	authCtx := &model.AuthContext{
		KeyID:     "key123",
		KeyPrefix: "abc123",
		UserID:    "user123",
		Scopes:    scopes,
	}
	return req.WithContext(auth.ContextWithAuth(req.Context(), authCtx))
}

func TestRequireScope(t *testing.T) {
	testCases := []struct {
		name       string
		scopes     []string
		required   string
		wantStatus int
	}{
		{"read allows read", []string{model.ScopeRead}, model.ScopeRead, http.StatusOK},
		{"write allows write", []string{model.ScopeWrite}, model.ScopeWrite, http.StatusOK},
		{"admin allows read", []string{model.ScopeAdmin}, model.ScopeRead, http.StatusOK},
		{"admin allows write", []string{model.ScopeAdmin}, model.ScopeWrite, http.StatusOK},
		{"admin allows admin", []string{model.ScopeAdmin}, model.ScopeAdmin, http.StatusOK},
		{"multiple scopes", []string{model.ScopeRead, model.ScopeWrite}, model.ScopeWrite, http.StatusOK},
		{"read cannot write", []string{model.ScopeRead}, model.ScopeWrite, http.StatusForbidden},
		{"read cannot admin", []string{model.ScopeRead}, model.ScopeAdmin, http.StatusForbidden},
		{"write cannot admin", []string{model.ScopeWrite}, model.ScopeAdmin, http.StatusForbidden},
		{"no scopes", nil, model.ScopeRead, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireScope(tc.required)(okHandler()).ServeHTTP(rec, requestWithScopes(tc.scopes...))

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestRequireScope_NoAuthContext(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRead()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestConvenienceMiddleware_AdminPassesAll(t *testing.T) {
	for name, mw := range map[string]func() func(http.Handler) http.Handler{
		"RequireRead":  RequireRead,
		"RequireWrite": RequireWrite,
		"RequireAdmin": RequireAdmin,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mw()(okHandler()).ServeHTTP(rec, requestWithScopes(model.ScopeAdmin))

			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		})
	}
}
