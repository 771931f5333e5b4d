package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the requested session could not be located.
var ErrSessionNotFound = errors.New("checkout session not found")

// Store persists checkout sessions in Redis. Guest sessions are additionally
// indexed by their opaque token so a scanned QR code resolves without the
// session ID.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 2 * time.Hour
	}
	return s.TTL
}

func sessionKey(storeID, sessionID string) string {
	return fmt.Sprintf("pos:session:%s:%s", storeID, sessionID)
}

func tokenKey(storeID, token string) string {
	return fmt.Sprintf("pos:guesttoken:%s:%s", storeID, token)
}

// Save writes the session, refreshing its TTL. Guest sessions also refresh
// the token index.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if s == nil || s.Client == nil {
		return errors.New("session store not configured")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.StoreID, sess.ID), data, s.ttl())
	if sess.Flow == FlowGuest && sess.GuestToken != "" {
		pipe.Set(ctx, tokenKey(sess.StoreID, sess.GuestToken), sess.ID, s.ttl())
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Load reads a session by ID. Unlike carts, a corrupt session is not
// recoverable and surfaces as an error.
func (s *Store) Load(ctx context.Context, storeID, sessionID string) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, errors.New("session store not configured")
	}
	data, err := s.Client.Get(ctx, sessionKey(storeID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// LoadByToken resolves a guest token to its session.
func (s *Store) LoadByToken(ctx context.Context, storeID, token string) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, errors.New("session store not configured")
	}
	id, err := s.Client.Get(ctx, tokenKey(storeID, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return s.Load(ctx, storeID, id)
}

// Delete removes a session and, for guest flows, its token index.
func (s *Store) Delete(ctx context.Context, sess Session) error {
	if s == nil || s.Client == nil {
		return errors.New("session store not configured")
	}
	keys := []string{sessionKey(sess.StoreID, sess.ID)}
	if sess.GuestToken != "" {
		keys = append(keys, tokenKey(sess.StoreID, sess.GuestToken))
	}
	return s.Client.Del(ctx, keys...).Err()
}
