// Package shipping resolves shipping costs for ship-fulfilled orders.
package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/money"
)

// ErrMethodNotFound indicates the requested shipping method does not exist.
var ErrMethodNotFound = errors.New("shipping method not found")

// Method is a flat-rate shipping option with an optional free-shipping
// threshold.
type Method struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Rate          money.Money  `json:"rate"`
	FreeAbove     *money.Money `json:"freeAbove,omitempty"`
	EstimatedDays int          `json:"estimatedDays"`
}

// Cost resolves the shipping charge for an order. Non-ship fulfillment
// never ships; a missing method costs nothing (the checkout guard, not the
// calculator, blocks completion without one). The free-shipping threshold
// is inclusive: subtotal == FreeAbove ships free.
func Cost(orderType cart.OrderType, method *Method, subtotal money.Money) money.Money {
	if orderType != cart.OrderTypeShip {
		return 0
	}
	if method == nil {
		return 0
	}
	if method.FreeAbove != nil && subtotal >= *method.FreeAbove {
		return 0
	}
	return method.Rate
}

// Repo loads shipping methods from Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

// List returns the store's configured shipping methods in display order.
func (r *Repo) List(ctx context.Context, storeID string) ([]Method, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("shipping repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, name, rate, free_above, estimated_days
		FROM shipping_methods
		WHERE store_id = $1
		ORDER BY position, id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list shipping methods: %w", err)
	}
	defer rows.Close()

	var methods []Method
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Name, &m.Rate, &m.FreeAbove, &m.EstimatedDays); err != nil {
			return nil, fmt.Errorf("scan shipping method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// Get returns a single shipping method by id.
func (r *Repo) Get(ctx context.Context, storeID, id string) (Method, error) {
	if r == nil || r.Pool == nil {
		return Method{}, errors.New("shipping repo not configured")
	}
	var m Method
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, rate, free_above, estimated_days
		FROM shipping_methods
		WHERE store_id = $1 AND id = $2`, storeID, id).Scan(&m.ID, &m.Name, &m.Rate, &m.FreeAbove, &m.EstimatedDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Method{}, ErrMethodNotFound
		}
		return Method{}, fmt.Errorf("get shipping method: %w", err)
	}
	return m, nil
}
