package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

const (
	reportKeyPrefix        = "report:"
	reportVersionKeyPrefix = "report:ver:"

	// DefaultReportTTL is the TTL for cached monthly reports.
	DefaultReportTTL = 10 * time.Minute
)

// Reports are keyed by a per-user generation. Bumping the generation
// orphans every cached month for that user; orphans expire by TTL.

func reportVersionKey(userID string) string {
	return reportVersionKeyPrefix + userID
}

func reportKey(userID string, generation int64, year, month int) string {
	return fmt.Sprintf("%s%s:%d:%04d-%02d", reportKeyPrefix, userID, generation, year, month)
}

// generation returns the current report generation for userID.
// A user that never invalidated is at generation 0.
func (c *Cache) generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, reportVersionKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read report generation: %w", err)
	}
	return gen, nil
}

// GetReport retrieves a cached monthly report and the generation it was
// looked up under. Returns ErrCacheMiss with a valid generation if not found.
// Callers pass that generation to SetReport so a report computed before a
// concurrent invalidation lands under the old, already orphaned generation.
func (c *Cache) GetReport(ctx context.Context, userID string, year, month int) (model.Report, int64, error) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, reportKey(userID, gen, year, month)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, ErrCacheMiss
		}
		return nil, gen, fmt.Errorf("redis get failed: %w", err)
	}

	report, err := decodeReport(data)
	return report, gen, err
}

// SetReport stores a monthly report under generation gen.
func (c *Cache) SetReport(ctx context.Context, userID string, gen int64, year, month int, report model.Report) error {
	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, reportKey(userID, gen, year, month), data, c.reportTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	return nil
}

// InvalidateReports makes every cached report of userID unreachable.
func (c *Cache) InvalidateReports(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, reportVersionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to bump report generation: %w", err)
	}
	return nil
}

// Amounts are stored as decimal strings.
func encodeReport(report model.Report) ([]byte, error) {
	raw := make(map[string]string, len(report))
	for category, amount := range report {
		raw[category] = amount.String()
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

func decodeReport(data []byte) (model.Report, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		// Corrupted entry, treat as miss
		return nil, ErrCacheMiss
	}

	report := make(model.Report, len(raw))
	for category, amount := range raw {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, ErrCacheMiss
		}
		report[category] = d
	}
	return report, nil
}
