package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	"RegimeEdge/pkg/util"
)

const insertChunk = 2000

// ClickHouseStore serves closes from two ReplacingMergeTree tables, one for daily
// closes and one for intraday bars.
type ClickHouseStore struct {
	db            *sql.DB
	dailyTable    string
	intradayTable string
	now           func() time.Time
}

// NewClickHouseStore creates a store over db.
func NewClickHouseStore(db *sql.DB, dailyTable, intradayTable string) *ClickHouseStore {
	return &ClickHouseStore{
		db:            db,
		dailyTable:    dailyTable,
		intradayTable: intradayTable,
		now:           time.Now,
	}
}

// Schema returns the DDL for both tables.
func (s *ClickHouseStore) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	symbol LowCardinality(String),
	day Date,
	close Float64,
	updated_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (symbol, day)`, s.dailyTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	symbol LowCardinality(String),
	bar LowCardinality(String),
	ts DateTime64(3, 'UTC'),
	close Float64,
	updated_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
PARTITION BY toYYYYMM(ts)
ORDER BY (symbol, bar, ts)`, s.intradayTable),
	}
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	for _, stmt := range s.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse init: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) FetchDailyCloses(ctx context.Context, symbols []string, start time.Time) ([]models.PriceSeries, error) {
	q := fmt.Sprintf("SELECT day, close FROM %s FINAL WHERE symbol = ? AND day >= ? ORDER BY day", s.dailyTable)
	return s.queryAll(ctx, "daily", symbols, q, func(sym string) []interface{} {
		return []interface{}{sym, util.TradingDay(start)}
	})
}

func (s *ClickHouseStore) FetchIntradayCloses(ctx context.Context, symbols []string, lookback time.Duration, bar domrepo.Interval) ([]models.PriceSeries, error) {
	from := s.now().UTC().Add(-lookback)
	q := fmt.Sprintf("SELECT ts, close FROM %s FINAL WHERE symbol = ? AND bar = ? AND ts >= ? ORDER BY ts", s.intradayTable)
	return s.queryAll(ctx, "intraday", symbols, q, func(sym string) []interface{} {
		return []interface{}{sym, string(bar), from}
	})
}

func (s *ClickHouseStore) FetchRecentDailyCloses(ctx context.Context, symbols []string, lookbackDays int) ([]models.PriceSeries, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	from := util.TradingDay(s.now()).AddDate(0, 0, -lookbackDays)
	q := fmt.Sprintf("SELECT day, close FROM %s FINAL WHERE symbol = ? AND day >= ? ORDER BY day", s.dailyTable)
	return s.queryAll(ctx, "recent_daily", symbols, q, func(sym string) []interface{} {
		return []interface{}{sym, from}
	})
}

// queryAll runs q once per symbol. Symbols without rows are omitted; a query error aborts.
func (s *ClickHouseStore) queryAll(ctx context.Context, op string, symbols []string, q string, args func(string) []interface{}) ([]models.PriceSeries, error) {
	out := make([]models.PriceSeries, 0, len(symbols))
	for _, sym := range symbols {
		series, err := s.query(ctx, sym, q, args(sym)...)
		if err != nil {
			return nil, &models.DataRetrievalError{Op: op, Symbols: symbols, Err: err}
		}
		if series.Len() > 0 {
			out = append(out, series)
		}
	}
	if len(out) == 0 {
		return nil, &models.DataRetrievalError{Op: op, Symbols: symbols, Err: fmt.Errorf("no rows")}
	}
	return out, nil
}

func (s *ClickHouseStore) query(ctx context.Context, symbol, q string, args ...interface{}) (models.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return models.PriceSeries{}, err
	}
	defer rows.Close()

	series := models.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var (
			ts time.Time
			px float64
		)
		if err := rows.Scan(&ts, &px); err != nil {
			return models.PriceSeries{}, err
		}
		ts = ts.UTC()
		if n := len(series.Points); n > 0 && !ts.After(series.Points[n-1].Time) {
			series.Points[n-1].Price = px
			continue
		}
		series.Points = append(series.Points, models.PricePoint{Time: ts, Price: px})
	}
	return series, rows.Err()
}

// StoreCloses upserts series into the table matching bar.
func (s *ClickHouseStore) StoreCloses(ctx context.Context, bar domrepo.Interval, series []models.PriceSeries) error {
	type row struct {
		symbol string
		p      models.PricePoint
	}
	var all []row
	for _, ser := range series {
		for _, p := range ser.Points {
			all = append(all, row{symbol: ser.Symbol, p: p})
		}
	}

	for start := 0; start < len(all); start += insertChunk {
		end := start + insertChunk
		if end > len(all) {
			end = len(all)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		var q string
		if bar == domrepo.Interval1d {
			for _, r := range all[start:end] {
				values = append(values, "(?, ?, ?)")
				args = append(args, r.symbol, util.TradingDay(r.p.Time), r.p.Price)
			}
			q = fmt.Sprintf("INSERT INTO %s (symbol, day, close) VALUES %s", s.dailyTable, strings.Join(values, ","))
		} else {
			for _, r := range all[start:end] {
				values = append(values, "(?, ?, ?, ?)")
				args = append(args, r.symbol, string(bar), r.p.Time.UTC(), r.p.Price)
			}
			q = fmt.Sprintf("INSERT INTO %s (symbol, bar, ts, close) VALUES %s", s.intradayTable, strings.Join(values, ","))
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store closes: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

var _ domrepo.PriceStore = (*ClickHouseStore)(nil)
