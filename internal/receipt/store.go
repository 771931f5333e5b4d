package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates no rendered receipt exists for the order.
var ErrNotFound = errors.New("receipt not found")

// Store keeps rendered PDFs in Redis so the download endpoint does not
// re-render on every request.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func key(storeID, orderID string) string {
	return fmt.Sprintf("pos:receipt:%s:%s", storeID, orderID)
}

// Save stores the rendered PDF.
func (s *Store) Save(ctx context.Context, storeID, orderID string, pdf []byte) error {
	if s == nil || s.Client == nil {
		return errors.New("receipt store not configured")
	}
	return s.Client.Set(ctx, key(storeID, orderID), pdf, s.ttl()).Err()
}

// Load returns the rendered PDF for an order.
func (s *Store) Load(ctx context.Context, storeID, orderID string) ([]byte, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("receipt store not configured")
	}
	data, err := s.Client.Get(ctx, key(storeID, orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
