package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateSession indicates an order was already captured for the
	// session. Submission is idempotent per session.
	ErrDuplicateSession = errors.New("order already exists for session")
)

const uniqueViolation = "23505"

// Repo stores orders in Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

// Create inserts the order, its lines and an order.created domain event in
// one transaction. A second insert for the same session returns
// ErrDuplicateSession.
func (r *Repo) Create(ctx context.Context, o Order) error {
	if r == nil || r.Pool == nil {
		return errors.New("order repo not configured")
	}
	addr, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, store_id, session_id, flow, status,
			customer_id, customer_name, customer_contact,
			fulfillment, table_id, shipping_method_id, address,
			subtotal, discount, tax, shipping, tip, total,
			currency, receipt_number, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.StoreID, o.SessionID, o.Flow, o.Status,
		nullable(o.CustomerID), o.CustomerName, o.CustomerContact,
		o.Fulfillment, nullable(o.TableID), nullable(o.ShippingMethodID), addr,
		o.Pricing.Subtotal, o.Pricing.Discount, o.Pricing.Tax, o.Pricing.Shipping, o.Pricing.Tip, o.Pricing.Total,
		o.Currency, nullable(o.ReceiptNumber), o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range o.Lines {
		lineID := l.ID
		if lineID == "" {
			lineID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, item_id, variation_id, name, quantity, weight, unit_price, discount, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			lineID, o.ID, l.ItemID, nullable(l.VariationID), l.Name, l.Quantity, l.Weight, l.UnitPrice, l.Discount, l.Total); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	payload, err := json.Marshal(map[string]any{
		"orderId": o.ID,
		"storeId": o.StoreID,
		"flow":    o.Flow,
		"total":   o.Pricing.Total,
	})
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	if _, _, err := r.insertEvent(ctx, tx, "order.created", o.ID, payload); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InsertDomainEvent records a standalone domain event outside the create
// transaction. It satisfies the events bus store contract.
func (r *Repo) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (string, time.Time, error) {
	if r == nil || r.Pool == nil {
		return "", time.Time{}, errors.New("order repo not configured")
	}
	return r.insertEvent(ctx, r.Pool, topic, aggregateID, payload)
}

type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) insertEvent(ctx context.Context, db execer, topic, aggregateID string, payload []byte) (string, time.Time, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var (
		id         string
		occurredAt time.Time
	)
	err := db.QueryRow(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, occurred_at`,
		uuid.NewString(), topic, aggregateID, payload).Scan(&id, &occurredAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert domain event: %w", err)
	}
	return id, occurredAt, nil
}

// Get loads a single order with its lines.
func (r *Repo) Get(ctx context.Context, storeID, orderID string) (Order, error) {
	if r == nil || r.Pool == nil {
		return Order{}, errors.New("order repo not configured")
	}
	var (
		o    Order
		addr []byte
	)
	err := r.Pool.QueryRow(ctx, `
		SELECT id, store_id, session_id, flow, status,
		       COALESCE(customer_id, ''), customer_name, customer_contact,
		       fulfillment, COALESCE(table_id, ''), COALESCE(shipping_method_id, ''), address,
		       subtotal, discount, tax, shipping, tip, total,
		       currency, COALESCE(receipt_number, ''), created_at
		FROM orders
		WHERE store_id = $1 AND id = $2`, storeID, orderID).Scan(
		&o.ID, &o.StoreID, &o.SessionID, &o.Flow, &o.Status,
		&o.CustomerID, &o.CustomerName, &o.CustomerContact,
		&o.Fulfillment, &o.TableID, &o.ShippingMethodID, &addr,
		&o.Pricing.Subtotal, &o.Pricing.Discount, &o.Pricing.Tax, &o.Pricing.Shipping, &o.Pricing.Tip, &o.Pricing.Total,
		&o.Currency, &o.ReceiptNumber, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("load order: %w", err)
	}
	if len(addr) > 0 && string(addr) != "null" {
		var a Address
		if err := json.Unmarshal(addr, &a); err == nil {
			o.Address = &a
		}
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT id, item_id, COALESCE(variation_id, ''), name, quantity, weight, unit_price, discount, total
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`, o.ID)
	if err != nil {
		return Order{}, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ItemID, &l.VariationID, &l.Name, &l.Quantity, &l.Weight, &l.UnitPrice, &l.Discount, &l.Total); err != nil {
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

// List returns recent orders for a store, newest first, without lines.
func (r *Repo) List(ctx context.Context, storeID string, limit, offset int) ([]Order, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("order repo not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, store_id, session_id, flow, status, customer_name,
		       subtotal, discount, tax, shipping, tip, total,
		       currency, COALESCE(receipt_number, ''), created_at
		FROM orders
		WHERE store_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.StoreID, &o.SessionID, &o.Flow, &o.Status, &o.CustomerName,
			&o.Pricing.Subtotal, &o.Pricing.Discount, &o.Pricing.Tax, &o.Pricing.Shipping, &o.Pricing.Tip, &o.Pricing.Total,
			&o.Currency, &o.ReceiptNumber, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus moves an order to a new status.
func (r *Repo) UpdateStatus(ctx context.Context, storeID, orderID, status string) error {
	if r == nil || r.Pool == nil {
		return errors.New("order repo not configured")
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE orders SET status = $3 WHERE store_id = $1 AND id = $2`, storeID, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
