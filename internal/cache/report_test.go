package cache

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

func TestReportKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		user  string
		gen   int64
		year  int
		month int
		want  string
	}{
		{"first generation", "alice", 0, 2024, 3, "report:alice:0:2024-03"},
		{"bumped generation", "alice", 7, 2024, 12, "report:alice:7:2024-12"},
		{"short year padded", "bob", 1, 999, 1, "report:bob:1:0999-01"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := reportKey(tt.user, tt.gen, tt.year, tt.month); got != tt.want {
				t.Errorf("reportKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportVersionKey_DoesNotCollideWithReports(t *testing.T) {
	t.Parallel()

	if got := reportVersionKey("alice"); got != "report:ver:alice" {
		t.Errorf("reportVersionKey() = %q", got)
	}
	if reportVersionKey("alice") == reportKey("ver", 0, 0, 0) {
		t.Error("version key collides with a report key")
	}
}

func TestEncodeDecodeReport_PreservesAmounts(t *testing.T) {
	t.Parallel()

	in := model.Report{
		"Food":      decimal.RequireFromString("15.10"),
		"Transport": decimal.RequireFromString("0.01"),
	}

	data, err := encodeReport(in)
	if err != nil {
		t.Fatalf("encodeReport() error = %v", err)
	}

	out, err := decodeReport(data)
	if err != nil {
		t.Fatalf("decodeReport() error = %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("decoded %d categories, want %d", len(out), len(in))
	}
	for category, amount := range in {
		if !out[category].Equal(amount) {
			t.Errorf("%s = %s, want %s", category, out[category], amount)
		}
	}
}

func TestDecodeReport_CorruptIsMiss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"bad amount", `{"Food":"ten"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := decodeReport([]byte(tt.data)); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("decodeReport() error = %v, want ErrCacheMiss", err)
			}
		})
	}
}
