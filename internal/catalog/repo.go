package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound indicates the item is missing or inactive.
var ErrItemNotFound = errors.New("catalog item not found")

// Repo loads catalog items from Postgres. Variations and modifiers are
// stored denormalised as JSON columns; the register reads the whole
// catalog far more often than anyone edits it.
type Repo struct {
	Pool *pgxpool.Pool
}

// List returns all active items for a store.
func (r *Repo) List(ctx context.Context, storeID string) ([]Item, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, store_id, COALESCE(category_id, ''), name, price, sold_by_weight, active, variations, modifiers
		FROM catalog_items
		WHERE store_id = $1 AND active
		ORDER BY name, id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads one active item.
func (r *Repo) Get(ctx context.Context, storeID, itemID string) (Item, error) {
	if r == nil || r.Pool == nil {
		return Item{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		SELECT id, store_id, COALESCE(category_id, ''), name, price, sold_by_weight, active, variations, modifiers
		FROM catalog_items
		WHERE store_id = $1 AND id = $2 AND active`, storeID, itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item       Item
		variations []byte
		modifiers  []byte
	)
	if err := row.Scan(&item.ID, &item.StoreID, &item.CategoryID, &item.Name, &item.Price, &item.SoldByWeight, &item.Active, &variations, &modifiers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan catalog item: %w", err)
	}
	if len(variations) > 0 {
		if err := json.Unmarshal(variations, &item.Variations); err != nil {
			return Item{}, fmt.Errorf("decode variations for %s: %w", item.ID, err)
		}
	}
	if len(modifiers) > 0 {
		if err := json.Unmarshal(modifiers, &item.Modifiers); err != nil {
			return Item{}, fmt.Errorf("decode modifiers for %s: %w", item.ID, err)
		}
	}
	return item, nil
}
