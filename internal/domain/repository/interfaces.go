package repository

import (
	"context"
	"time"

	"RegimeEdge/internal/domain/models"
)

// PriceProvider delivers close prices. Implementations return one series per symbol
// they could serve, omitting symbols without data, and a *models.DataRetrievalError
// when nothing could be retrieved.
type PriceProvider interface {
	// FetchDailyCloses returns daily closes from start until now.
	FetchDailyCloses(ctx context.Context, symbols []string, start time.Time) ([]models.PriceSeries, error)
	// FetchIntradayCloses returns bar closes over the trailing lookback.
	FetchIntradayCloses(ctx context.Context, symbols []string, lookback time.Duration, bar Interval) ([]models.PriceSeries, error)
	// FetchRecentDailyCloses returns daily closes over the trailing lookbackDays.
	FetchRecentDailyCloses(ctx context.Context, symbols []string, lookbackDays int) ([]models.PriceSeries, error)
}

// PriceStore is a PriceProvider backed by a database that needs setup.
type PriceStore interface {
	PriceProvider
	Init(ctx context.Context) error // ensure tables
	StoreCloses(ctx context.Context, bar Interval, series []models.PriceSeries) error
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher forwards generated signals to downstream consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, s models.Signal) error
	Close() error
}

type Metrics interface {
	RecordSignal(direction string, source string)
	RecordRegime(active bool, pValue float64, defaulted bool)
	RecordWindowFailures(n int)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
