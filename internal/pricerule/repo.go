package pricerule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo loads pricing rules from Postgres in evaluation order.
type Repo struct {
	Pool *pgxpool.Pool
}

// List returns all rules for a store ordered by position. Evaluation is
// first-match-wins, so position is the tie-break between overlapping rules.
func (r *Repo) List(ctx context.Context, storeID string) ([]Rule, error) {
	if r == nil || r.Pool == nil {
		return nil, fmt.Errorf("pricerule repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, name, kind, multiplier_bps, start_time, end_time, days, category_ids, item_ids, active
		FROM pricing_rules
		WHERE store_id = $1
		ORDER BY position, id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var (
			rule        Rule
			kind        string
			days        []string
			categoryIDs []string
			itemIDs     []string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &kind, &rule.MultiplierBps, &rule.StartTime, &rule.EndTime, &days, &categoryIDs, &itemIDs, &rule.Active); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rule.Kind = Kind(kind)
		rule.Days = parseDays(days)
		rule.CategoryIDs = categoryIDs
		rule.ItemIDs = itemIDs
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseDays(names []string) []time.Weekday {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		if d, ok := dayNames[strings.ToLower(strings.TrimSpace(n))]; ok {
			out = append(out, d)
		}
	}
	return out
}
