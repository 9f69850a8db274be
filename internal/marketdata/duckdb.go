package marketdata

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/internal/database"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

const pricesTable = "prices"

const upsertPriceQuery = `
	INSERT INTO prices (symbol, timeframe, ts, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, timeframe, ts) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume
`

// DuckDBPriceStore is a PriceStore backed by a DuckDB prices table.
type DuckDBPriceStore struct {
	db           *sql.DB
	logger       *logger.Logger
	sq           squirrel.StatementBuilderType
	queryTimeout time.Duration
}

// NewDuckDBPriceStore creates the prices table if needed. Every call is bounded by
// queryTimeout; zero disables the bound.
func NewDuckDBPriceStore(ctx context.Context, db *sql.DB, queryTimeout time.Duration, logger *logger.Logger) (*DuckDBPriceStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS prices (
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			ts TIMESTAMP NOT NULL,
			open DOUBLE NOT NULL,
			high DOUBLE NOT NULL,
			low DOUBLE NOT NULL,
			close DOUBLE NOT NULL,
			volume DOUBLE NOT NULL,
			PRIMARY KEY (symbol, timeframe, ts)
		)
	`)
	if err != nil {
		return nil, errors.FromContext(err, errors.ErrCodeStoreUnavailable, "failed to create prices table")
	}

	return &DuckDBPriceStore{
		db:           db,
		logger:       logger,
		sq:           database.Builder(),
		queryTimeout: queryTimeout,
	}, nil
}

// Fetch implements PriceStore.
func (s *DuckDBPriceStore) Fetch(ctx context.Context, symbol string, timeframe types.Timeframe, start, end types.DateBound) (types.TimeSeries, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	builder := s.sq.
		Select("ts", "open", "high", "low", "close", "volume").
		From(pricesTable).
		Where(squirrel.Eq{"symbol": symbol, "timeframe": string(timeframe)})

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"ts": types.TruncateToDate(start.Unwrap())})
	}

	// the end date is inclusive, so compare against the following midnight
	if end.IsSome() {
		builder = builder.Where(squirrel.Lt{"ts": types.TruncateToDate(end.Unwrap()).AddDate(0, 0, 1)})
	}

	query, args, err := builder.OrderBy("ts ASC").ToSql()
	if err != nil {
		return types.TimeSeries{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build price query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.TimeSeries{}, errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to query prices")
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return types.TimeSeries{}, errors.Wrap(errors.ErrCodeFetchFailed, "failed to scan price row", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return types.TimeSeries{}, errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to read prices")
	}

	s.logger.Debug("Fetched prices",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("rows", len(bars)),
	)

	series, err := types.NewTimeSeries(symbol, timeframe, bars)
	if err != nil {
		return types.TimeSeries{}, errors.Wrap(errors.ErrCodeFetchFailed, "stored prices are unusable", err)
	}

	return series, nil
}

// Upsert implements PriceStore. Bars are written in a single transaction; when a batch
// holds the same timestamp twice, the later bar wins.
func (s *DuckDBPriceStore) Upsert(ctx context.Context, symbol string, timeframe types.Timeframe, bars []types.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	unique, err := dedupe(bars)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.FromContext(err, errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, upsertPriceQuery)
	if err != nil {
		_ = tx.Rollback()

		return 0, errors.FromContext(err, errors.ErrCodeMarketDataWriteFailed, "failed to prepare price upsert")
	}
	defer stmt.Close()

	for _, bar := range unique {
		_, err := stmt.ExecContext(ctx, symbol, string(timeframe), bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		if err != nil {
			_ = tx.Rollback()

			return 0, errors.FromContext(err, errors.ErrCodeMarketDataWriteFailed, "failed to upsert price bar")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.FromContext(err, errors.ErrCodeMarketDataWriteFailed, "failed to commit prices")
	}

	s.logger.Info("Stored prices",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("rows", len(unique)),
	)

	return len(unique), nil
}

// LatestTimestamp implements PriceStore.
func (s *DuckDBPriceStore) LatestTimestamp(ctx context.Context, symbol string, timeframe types.Timeframe) (optional.Option[time.Time], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := s.sq.
		Select("MAX(ts)").
		From(pricesTable).
		Where(squirrel.Eq{"symbol": symbol, "timeframe": string(timeframe)}).
		ToSql()
	if err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build latest timestamp query", err)
	}

	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&latest); err != nil {
		return optional.None[time.Time](), errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to query latest timestamp")
	}

	if !latest.Valid {
		return optional.None[time.Time](), nil
	}

	return optional.Some(latest.Time.UTC()), nil
}

//nolint:funcorder // helper method used by exported methods
func (s *DuckDBPriceStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.queryTimeout)
}

// dedupe validates bars and keeps the last bar per timestamp, in first-seen order.
func dedupe(bars []types.PriceBar) ([]types.PriceBar, error) {
	index := make(map[time.Time]int, len(bars))
	unique := make([]types.PriceBar, 0, len(bars))

	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			return nil, err
		}

		bar.Time = bar.Time.UTC()

		if i, ok := index[bar.Time]; ok {
			unique[i] = bar

			continue
		}

		index[bar.Time] = len(unique)
		unique = append(unique, bar)
	}

	return unique, nil
}
