package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound indicates no loyalty account exists for the customer.
var ErrAccountNotFound = errors.New("loyalty account not found")

// Account is a customer's loyalty state.
type Account struct {
	CustomerID        string `json:"customerId"`
	TotalPointsEarned int64  `json:"totalPointsEarned"`
	PointsBalance     int64  `json:"pointsBalance"`
}

// Repo persists loyalty accounts in Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

// Get loads a customer's account.
func (r *Repo) Get(ctx context.Context, customerID string) (Account, error) {
	if r == nil || r.Pool == nil {
		return Account{}, errors.New("loyalty repo not configured")
	}
	var a Account
	err := r.Pool.QueryRow(ctx, `
		SELECT customer_id, total_points_earned, points_balance
		FROM loyalty_accounts
		WHERE customer_id = $1`, customerID).Scan(&a.CustomerID, &a.TotalPointsEarned, &a.PointsBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("get loyalty account: %w", err)
	}
	return a, nil
}

// Accrue adds earned points to the account, creating it on first accrual,
// and returns the updated account.
func (r *Repo) Accrue(ctx context.Context, customerID string, points int64) (Account, error) {
	if r == nil || r.Pool == nil {
		return Account{}, errors.New("loyalty repo not configured")
	}
	var a Account
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO loyalty_accounts (customer_id, total_points_earned, points_balance)
		VALUES ($1, $2, $2)
		ON CONFLICT (customer_id) DO UPDATE
		SET total_points_earned = loyalty_accounts.total_points_earned + EXCLUDED.total_points_earned,
		    points_balance = loyalty_accounts.points_balance + EXCLUDED.points_balance,
		    updated_at = now()
		RETURNING customer_id, total_points_earned, points_balance`,
		customerID, points).Scan(&a.CustomerID, &a.TotalPointsEarned, &a.PointsBalance)
	if err != nil {
		return Account{}, fmt.Errorf("accrue loyalty points: %w", err)
	}
	return a, nil
}
