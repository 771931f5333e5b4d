package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed staff credential and session store.
type Repo struct {
	Pool *pgxpool.Pool
}

var _ Store = (*Repo)(nil)

// StaffByEmail looks up an operator by store and email.
func (r *Repo) StaffByEmail(ctx context.Context, storeID, email string) (Staff, error) {
	const q = `
		SELECT id, store_id, name, email, role, pin_hash, active, created_at
		FROM staff
		WHERE store_id = $1 AND email = $2`
	return r.scanStaff(r.Pool.QueryRow(ctx, q, storeID, email))
}

// StaffByID looks up an operator by identifier.
func (r *Repo) StaffByID(ctx context.Context, id string) (Staff, error) {
	const q = `
		SELECT id, store_id, name, email, role, pin_hash, active, created_at
		FROM staff
		WHERE id = $1`
	return r.scanStaff(r.Pool.QueryRow(ctx, q, id))
}

// CreateSession records a refresh session for a signed-in shift.
func (r *Repo) CreateSession(ctx context.Context, sess Session) error {
	const q = `
		INSERT INTO staff_sessions (staff_id, token_hash, terminal, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.Pool.Exec(ctx, q, sess.StaffID, sess.TokenHash, sess.Terminal, sess.IP, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionByToken resolves a refresh session by hashed token.
func (r *Repo) SessionByToken(ctx context.Context, tokenHash string) (Session, error) {
	const q = `
		SELECT id, staff_id, token_hash, terminal, ip, expires_at
		FROM staff_sessions
		WHERE token_hash = $1`
	var sess Session
	err := r.Pool.QueryRow(ctx, q, tokenHash).Scan(
		&sess.ID, &sess.StaffID, &sess.TokenHash, &sess.Terminal, &sess.IP, &sess.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// RotateSession swaps the stored token hash and extends the expiry.
func (r *Repo) RotateSession(ctx context.Context, sessionID, tokenHash string, expiresAt time.Time) error {
	const q = `
		UPDATE staff_sessions
		SET token_hash = $2, expires_at = $3
		WHERE id = $1`
	tag, err := r.Pool.Exec(ctx, q, sessionID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSessionByToken revokes a single refresh session.
func (r *Repo) DeleteSessionByToken(ctx context.Context, tokenHash string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM staff_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSessionsByStaff revokes every session held by the given operator.
func (r *Repo) DeleteSessionsByStaff(ctx context.Context, staffID string) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM staff_sessions WHERE staff_id = $1`, staffID)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

func (r *Repo) scanStaff(row pgx.Row) (Staff, error) {
	var st Staff
	err := row.Scan(&st.ID, &st.StoreID, &st.Name, &st.Email, &st.Role, &st.PINHash, &st.Active, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Staff{}, ErrStaffNotFound
	}
	if err != nil {
		return Staff{}, fmt.Errorf("get staff: %w", err)
	}
	return st, nil
}
