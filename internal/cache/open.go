package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

// Backend names a cache implementation.
type Backend string

const (
	BackendDuckDB Backend = "duckdb"
	BackendRedis  Backend = "redis"
)

// Options selects and configures the cache backend. QueryTimeout bounds DuckDB cache queries.
type Options struct {
	Backend      Backend
	RedisAddr    string
	TTL          time.Duration
	QueryTimeout time.Duration
}

// Open returns the configured cache backend. The DuckDB backend lives in db next to the
// price table; the redis backend dials RedisAddr.
func Open(ctx context.Context, options Options, db *sql.DB, logger *logger.Logger) (Store, error) {
	switch options.Backend {
	case BackendDuckDB, "":
		store, err := NewDuckDBStore(ctx, db, options.QueryTimeout, logger)
		if err != nil {
			return nil, err
		}

		return store, nil
	case BackendRedis:
		//nolint:exhaustruct // third-party struct with many optional fields
		client := redis.NewClient(&redis.Options{Addr: options.RedisAddr})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()

			return nil, errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to connect to redis at "+options.RedisAddr)
		}

		logger.Info("Using redis cache", zap.String("addr", options.RedisAddr), zap.Duration("ttl", options.TTL))

		store, err := NewRedisStore(ctx, client, options.TTL, logger)
		if err != nil {
			client.Close()

			return nil, err
		}

		return store, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "unknown cache backend %q", options.Backend)
	}
}
