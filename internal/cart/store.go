package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Store persists cart snapshots as JSON documents in Redis, keyed by store
// and cart identifier. The engine itself is storage-agnostic; this is the
// production persistence collaborator.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	TaxBps int64
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func key(storeID, cartID string) string {
	return fmt.Sprintf("pos:cart:%s:%s", storeID, cartID)
}

// Save writes the cart snapshot, refreshing its TTL.
func (s *Store) Save(ctx context.Context, storeID, cartID string, c Cart) error {
	if s == nil || s.Client == nil {
		return errors.New("cart store not configured")
	}
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.Client.Set(ctx, key(storeID, cartID), data, s.ttl()).Err()
}

// Load reads a cart snapshot. A missing key returns ErrNotFound; a corrupt
// payload decodes to an empty cart.
func (s *Store) Load(ctx context.Context, storeID, cartID string) (Cart, error) {
	if s == nil || s.Client == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	data, err := s.Client.Get(ctx, key(storeID, cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	return Unmarshal(data, s.TaxBps), nil
}

// Delete removes the cart, typically after order submission.
func (s *Store) Delete(ctx context.Context, storeID, cartID string) error {
	if s == nil || s.Client == nil {
		return errors.New("cart store not configured")
	}
	return s.Client.Del(ctx, key(storeID, cartID)).Err()
}
