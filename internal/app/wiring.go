// Package app holds startup wiring shared by the API and worker binaries.
package app

import (
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RunMigrations applies pending schema migrations. A schema that is already
// current is not an error.
func RunMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// NewLoginLimiter builds per-IP rate limiting middleware for the staff
// login endpoint, backed by the shared Redis client.
func NewLoginLimiter(rdb *redis.Client, max int, window time.Duration) (*mstdlib.Middleware, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "pos:login"})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return mstdlib.NewMiddleware(limiter.New(store, rate)), nil
}
