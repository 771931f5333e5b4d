package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem provides an Idempotency-Key middleware backed by Redis. Register
// clients send a fresh key per submit tap, so a double tap on a flaky
// connection cannot dispatch two charges.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// Keys are hashed before storage so arbitrary client input never lands
// in the keyspace verbatim.
func idemKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "pos:idem:" + hex.EncodeToString(sum[:])
}

// Middleware claims the request's Idempotency-Key and rejects replays
// with 409. Requests without a key pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the claim expiring even if the handler panics mid-flight
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
