package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/moznion/go-optional"
	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/internal/version"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

// absentKeyPart marks a missing date bound inside a redis key.
const absentKeyPart = "~"

// RedisStore keeps both caches in redis as JSON values.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisStore checks the schema version recorded under the key prefix and returns a
// store writing entries with the given ttl. A zero ttl keeps entries forever.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, ttl time.Duration, logger *logger.Logger) (*RedisStore, error) {
	s := &RedisStore{
		client: client,
		prefix: "argo-eval:",
		ttl:    ttl,
		logger: logger,
	}

	metaKey := s.prefix + "meta:" + schemaVersionKey

	if err := client.SetNX(ctx, metaKey, SchemaVersion, 0).Err(); err != nil {
		return nil, errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to record cache schema version")
	}

	stored, err := client.Get(ctx, metaKey).Result()
	if err != nil {
		return nil, errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to read cache schema version")
	}

	if err := version.CheckVersionCompatibility(SchemaVersion, stored); err != nil {
		return nil, err
	}

	return s, nil
}

// GetSignals implements SignalCache.
func (s *RedisStore) GetSignals(ctx context.Context, key SignalKey) (optional.Option[SignalPayload], error) {
	var payload SignalPayload

	found, err := s.get(ctx, s.signalsKey(key), &payload)
	if err != nil || !found {
		return optional.None[SignalPayload](), err
	}

	return optional.Some(payload), nil
}

// PutSignals implements SignalCache.
func (s *RedisStore) PutSignals(ctx context.Context, key SignalKey, payload SignalPayload) error {
	return s.set(ctx, s.signalsKey(key), payload)
}

// GetBacktest implements BacktestCache.
func (s *RedisStore) GetBacktest(ctx context.Context, key BacktestKey) (optional.Option[BacktestPayload], error) {
	var payload BacktestPayload

	found, err := s.get(ctx, s.backtestKey(key), &payload)
	if err != nil || !found {
		return optional.None[BacktestPayload](), err
	}

	return optional.Some(payload), nil
}

// PutBacktest implements BacktestCache.
func (s *RedisStore) PutBacktest(ctx context.Context, key BacktestKey, payload BacktestPayload) error {
	return s.set(ctx, s.backtestKey(key), payload)
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

//nolint:funcorder // helper method used by exported methods
func (s *RedisStore) signalsKey(key SignalKey) string {
	return fmt.Sprintf("%ssignals:%s:%s:%s:%s:%s:%s:%s", s.prefix,
		key.StrategyKey, key.Symbol, key.Timeframe, key.ParamsHash,
		keyPart(key.Start), keyPart(key.End), key.DataVersion)
}

//nolint:funcorder // helper method used by exported methods
func (s *RedisStore) backtestKey(key BacktestKey) string {
	return fmt.Sprintf("%sbacktest:%s:%s:%s:%s:%s:%s", s.prefix,
		key.StrategyKey, key.Symbol, key.Timeframe,
		keyPart(key.Start), keyPart(key.End), strconv.FormatFloat(key.Invested, 'f', -1, 64))
}

//nolint:funcorder // helper method used by exported methods
func (s *RedisStore) get(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to read cache")
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrap(errors.ErrCodeCacheCorrupt, "cached entry cannot be decoded", err)
	}

	return true, nil
}

//nolint:funcorder // helper method used by exported methods
func (s *RedisStore) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to encode cache entry", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.FromContext(err, errors.ErrCodeCacheWriteFailed, "failed to write cache")
	}

	s.logger.Debug("Stored cache entry", zap.String("key", key), zap.Duration("ttl", s.ttl))

	return nil
}

func keyPart(bound types.DateBound) string {
	if bound.IsNone() {
		return absentKeyPart
	}

	return types.FormatDateBound(bound)
}
