package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/budgetbook/budgetbook/internal/model"
)

// ErrUnsupportedCriterion is returned for criteria the SQL layer cannot translate.
var ErrUnsupportedCriterion = errors.New("unsupported expense criterion")

// whereClause renders criteria as an AND-joined SQL condition.
// Placeholders are numbered from start so callers can prepend their own args.
func whereClause(criteria []model.Criterion, start int) (string, []any, error) {
	if len(criteria) == 0 {
		return "TRUE", nil, nil
	}

	conds := make([]string, 0, len(criteria))
	args := make([]any, 0, len(criteria)+1)

	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", start+len(args)-1)
	}

	for _, c := range criteria {
		switch c := c.(type) {
		case model.OwnedBy:
			conds = append(conds, "user_id = "+bind(c.UserID))
		case model.HasID:
			conds = append(conds, "id = "+bind(c.ID))
		case model.CategoryContains:
			conds = append(conds, "strpos(lower(category), lower("+bind(c.Substring)+"::text)) > 0")
		case model.DateRange:
			from := bind(c.From)
			to := bind(c.To)
			conds = append(conds, "date >= "+from+" AND date < "+to)
		default:
			return "", nil, fmt.Errorf("%w: %T", ErrUnsupportedCriterion, c)
		}
	}

	return strings.Join(conds, " AND "), args, nil
}
