package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/internal/database"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/internal/version"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

const (
	signalsTable   = "signals_cache"
	backtestsTable = "backtests_cache"
	metaTable      = "cache_meta"

	schemaVersionKey = "schema_version"

	signalsConflict   = "ON CONFLICT (strategy_key, symbol, timeframe, params_hash, start_key, end_key, data_version) "
	backtestsConflict = "ON CONFLICT (strategy_key, symbol, timeframe, start_key, end_key, invested) "
)

// DuckDBStore persists both caches in DuckDB.
//
// start_date and end_date keep SQL NULL for an absent bound and every lookup compares
// them with IS NOT DISTINCT FROM. DuckDB unique indexes treat NULLs as distinct, so the
// unique key uses the non-null start_key and end_key columns ("" when absent) instead.
type DuckDBStore struct {
	db           *sql.DB
	logger       *logger.Logger
	sq           squirrel.StatementBuilderType
	queryTimeout time.Duration
}

// NewDuckDBStore creates the cache tables on db if needed and checks that the stored
// schema version is compatible with this binary. Every cache read and write is bounded
// by queryTimeout; zero disables the bound.
func NewDuckDBStore(ctx context.Context, db *sql.DB, queryTimeout time.Duration, logger *logger.Logger) (*DuckDBStore, error) {
	s := &DuckDBStore{
		db:           db,
		logger:       logger,
		sq:           database.Builder(),
		queryTimeout: queryTimeout,
	}

	if err := s.initialize(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// GetSignals implements SignalCache.
func (s *DuckDBStore) GetSignals(ctx context.Context, key SignalKey) (optional.Option[SignalPayload], error) {
	query, args, err := s.sq.
		Select("signals_json").
		From(signalsTable).
		Where(squirrel.Eq{
			"strategy_key": key.StrategyKey,
			"symbol":       key.Symbol,
			"timeframe":    string(key.Timeframe),
			"params_hash":  key.ParamsHash,
			"data_version": key.DataVersion,
		}).
		Where(nullSafeDate("start_date", key.Start)).
		Where(nullSafeDate("end_date", key.End)).
		Limit(1).
		ToSql()
	if err != nil {
		return optional.None[SignalPayload](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build signals cache query", err)
	}

	var payload SignalPayload

	found, err := s.lookup(ctx, query, args, &payload)
	if err != nil || !found {
		return optional.None[SignalPayload](), err
	}

	return optional.Some(payload), nil
}

// PutSignals implements SignalCache.
func (s *DuckDBStore) PutSignals(ctx context.Context, key SignalKey, payload SignalPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to encode signals", err)
	}

	query, args, err := s.sq.
		Insert(signalsTable).
		Columns("id", "strategy_key", "symbol", "timeframe", "params_hash",
			"start_date", "end_date", "start_key", "end_key", "data_version", "signals_json", "updated_at").
		Values(uuid.New().String(), key.StrategyKey, key.Symbol, string(key.Timeframe), key.ParamsHash,
			dateExpr(key.Start), dateExpr(key.End), types.FormatDateBound(key.Start), types.FormatDateBound(key.End),
			key.DataVersion, string(raw), time.Now().UTC()).
		Suffix(signalsConflict + "DO UPDATE SET signals_json = excluded.signals_json, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build signals cache upsert", err)
	}

	if err := s.exec(ctx, query, args); err != nil {
		return errors.FromContext(err, errors.ErrCodeCacheWriteFailed, "failed to write signals cache")
	}

	s.logger.Debug("Stored signals in cache",
		zap.String("strategy", key.StrategyKey),
		zap.String("symbol", key.Symbol),
		zap.String("data_version", key.DataVersion),
		zap.Int("signals", len(payload.Signals)),
	)

	return nil
}

// GetBacktest implements BacktestCache.
func (s *DuckDBStore) GetBacktest(ctx context.Context, key BacktestKey) (optional.Option[BacktestPayload], error) {
	query, args, err := s.sq.
		Select("result_json").
		From(backtestsTable).
		Where(squirrel.Eq{
			"strategy_key": key.StrategyKey,
			"symbol":       key.Symbol,
			"timeframe":    string(key.Timeframe),
			"invested":     key.Invested,
		}).
		Where(nullSafeDate("start_date", key.Start)).
		Where(nullSafeDate("end_date", key.End)).
		Limit(1).
		ToSql()
	if err != nil {
		return optional.None[BacktestPayload](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build backtest cache query", err)
	}

	var payload BacktestPayload

	found, err := s.lookup(ctx, query, args, &payload)
	if err != nil || !found {
		return optional.None[BacktestPayload](), err
	}

	return optional.Some(payload), nil
}

// PutBacktest implements BacktestCache.
func (s *DuckDBStore) PutBacktest(ctx context.Context, key BacktestKey, payload BacktestPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to encode backtest result", err)
	}

	query, args, err := s.sq.
		Insert(backtestsTable).
		Columns("id", "strategy_key", "symbol", "timeframe",
			"start_date", "end_date", "start_key", "end_key", "invested", "result_json", "updated_at").
		Values(uuid.New().String(), key.StrategyKey, key.Symbol, string(key.Timeframe),
			dateExpr(key.Start), dateExpr(key.End), types.FormatDateBound(key.Start), types.FormatDateBound(key.End),
			key.Invested, string(raw), time.Now().UTC()).
		Suffix(backtestsConflict + "DO UPDATE SET result_json = excluded.result_json, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build backtest cache upsert", err)
	}

	if err := s.exec(ctx, query, args); err != nil {
		return errors.FromContext(err, errors.ErrCodeCacheWriteFailed, "failed to write backtest cache")
	}

	return nil
}

// Count returns the number of rows in the signals and backtests caches.
func (s *DuckDBStore) Count(ctx context.Context) (int, int, error) {
	var signals, backtests int

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+signalsTable).Scan(&signals); err != nil {
		return 0, 0, errors.FromContext(err, errors.ErrCodeQueryFailed, "failed to count signals cache")
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+backtestsTable).Scan(&backtests); err != nil {
		return 0, 0, errors.FromContext(err, errors.ErrCodeQueryFailed, "failed to count backtests cache")
	}

	return signals, backtests, nil
}

// Close is a no-op: the database handle belongs to the caller.
func (s *DuckDBStore) Close() error {
	return nil
}

//nolint:funcorder // helper method used by NewDuckDBStore
func (s *DuckDBStore) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + metaTable + ` (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + signalsTable + ` (
			id TEXT NOT NULL,
			strategy_key TEXT NOT NULL,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			params_hash TEXT NOT NULL,
			start_date DATE,
			end_date DATE,
			start_key TEXT NOT NULL,
			end_key TEXT NOT NULL,
			data_version TEXT NOT NULL,
			signals_json TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (strategy_key, symbol, timeframe, params_hash, start_key, end_key, data_version)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + backtestsTable + ` (
			id TEXT NOT NULL,
			strategy_key TEXT NOT NULL,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			start_date DATE,
			end_date DATE,
			start_key TEXT NOT NULL,
			end_key TEXT NOT NULL,
			invested DOUBLE NOT NULL,
			result_json TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (strategy_key, symbol, timeframe, start_key, end_key, invested)
		)`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to create cache tables")
		}
	}

	var stored string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM "+metaTable+" WHERE name = ?", schemaVersionKey).Scan(&stored)
	if stderrors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, "INSERT INTO "+metaTable+" (name, value) VALUES (?, ?)", schemaVersionKey, SchemaVersion)
		if err != nil {
			return errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to record cache schema version")
		}

		s.logger.Info("Initialized cache store", zap.String("schema_version", SchemaVersion))

		return nil
	}

	if err != nil {
		return errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to read cache schema version")
	}

	return version.CheckVersionCompatibility(SchemaVersion, stored)
}

// lookup runs a single-column JSON query and decodes the row into out.
//
//nolint:funcorder // helper method used by exported methods
func (s *DuckDBStore) lookup(ctx context.Context, query string, args []any, out any) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var raw string

	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to read cache")
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errors.Wrap(errors.ErrCodeCacheCorrupt, "cached entry cannot be decoded", err)
	}

	return true, nil
}

//nolint:funcorder // helper method used by exported methods
func (s *DuckDBStore) exec(ctx context.Context, query string, args []any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, args...)

	return err
}

//nolint:funcorder // helper method used by exported methods
func (s *DuckDBStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.queryTimeout)
}

// nullSafeDate matches column against bound, treating an absent bound as SQL NULL.
func nullSafeDate(column string, bound types.DateBound) squirrel.Sqlizer {
	return squirrel.Expr(column+" IS NOT DISTINCT FROM CAST(? AS DATE)", dateValue(bound))
}

func dateExpr(bound types.DateBound) squirrel.Sqlizer {
	return squirrel.Expr("CAST(? AS DATE)", dateValue(bound))
}

func dateValue(bound types.DateBound) any {
	if bound.IsNone() {
		return nil
	}

	return types.FormatDateBound(bound)
}
