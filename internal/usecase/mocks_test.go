package usecase

import (
	"context"
	"sync"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"

	"github.com/stretchr/testify/mock"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) FetchDailyCloses(ctx context.Context, symbols []string, start time.Time) ([]models.PriceSeries, error) {
	args := m.Called(ctx, symbols, start)
	s, _ := args.Get(0).([]models.PriceSeries)
	return s, args.Error(1)
}

func (m *mockProvider) FetchIntradayCloses(ctx context.Context, symbols []string, lookback time.Duration, bar domrepo.Interval) ([]models.PriceSeries, error) {
	args := m.Called(ctx, symbols, lookback, bar)
	s, _ := args.Get(0).([]models.PriceSeries)
	return s, args.Error(1)
}

func (m *mockProvider) FetchRecentDailyCloses(ctx context.Context, symbols []string, lookbackDays int) ([]models.PriceSeries, error) {
	args := m.Called(ctx, symbols, lookbackDays)
	s, _ := args.Get(0).([]models.PriceSeries)
	return s, args.Error(1)
}

type mockClassifier struct{ mock.Mock }

func (m *mockClassifier) Classify(ctx context.Context, leading, target models.ReturnSeries) (models.RegimeState, error) {
	args := m.Called(ctx, leading, target)
	return args.Get(0).(models.RegimeState), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishSignal(ctx context.Context, s models.Signal) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type recordingMetrics struct {
	mu      sync.Mutex
	signals []string
	errors  []string
	regimes []models.RegimeState
}

func (r *recordingMetrics) RecordSignal(direction, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, direction+"/"+source)
}

func (r *recordingMetrics) RecordRegime(active bool, pValue float64, defaulted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regimes = append(r.regimes, models.RegimeState{Active: active, PValue: pValue, Defaulted: defaulted})
}

func (r *recordingMetrics) RecordWindowFailures(int) {}

func (r *recordingMetrics) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recordingMetrics) RecordLastPrice(string, float64) {}

func (r *recordingMetrics) RecordLatency(string, float64) {}

var t0 = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

// closes builds a series with one point per step starting at t0.
func closes(symbol string, step time.Duration, prices ...float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol, Points: make([]models.PricePoint, len(prices))}
	for i, p := range prices {
		s.Points[i] = models.PricePoint{Time: t0.Add(time.Duration(i) * step), Price: p}
	}
	return s
}
