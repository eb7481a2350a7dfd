package usecase

import (
	"context"
	"testing"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name   string
		active bool
		change float64
		dir    models.Direction
		reason string
	}{
		{"inactive beats strong move", false, 0.05, models.DirectionFlat, models.ReasonRegimeInactive},
		{"strong up", true, 0.002, models.DirectionLong, models.ReasonStrongUp},
		{"strong down", true, -0.002, models.DirectionShort, models.ReasonStrongDown},
		{"just above threshold", true, 0.0016, models.DirectionLong, models.ReasonStrongUp},
		{"just below threshold", true, 0.0014, models.DirectionFlat, models.ReasonBelowThreshold},
		{"just below negative threshold", true, -0.0016, models.DirectionShort, models.ReasonStrongDown},
		{"upper bound is flat", true, 0.0015, models.DirectionFlat, models.ReasonBelowThreshold},
		{"lower bound is flat", true, -0.0015, models.DirectionFlat, models.ReasonBelowThreshold},
		{"no move", true, 0, models.DirectionFlat, models.ReasonBelowThreshold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir, reason := Decide(tc.active, tc.change, DefaultChangeThreshold)
			assert.Equal(t, tc.dir, dir)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func newGenerator(p *mockProvider) *SignalGenerator {
	g := NewSignalGenerator(p, GeneratorConfig{
		Leading:          "TSLA",
		Target:           "BTC-USD",
		IntradayLookback: 120 * time.Hour,
		Bar:              domrepo.Interval5m,
		FallbackDays:     2,
	}, nil)
	g.now = func() time.Time { return t0.Add(1500 * time.Millisecond) }
	return g
}

var active = models.RegimeState{AsOf: t0, PValue: 0.03, Active: true}

func TestGenerateIntradayLong(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchIntradayCloses", mock.Anything, []string{"TSLA", "BTC-USD"}, 120*time.Hour, domrepo.Interval5m).Return([]models.PriceSeries{
		closes("TSLA", 5*time.Minute, 100, 100, 100.2),
		closes("BTC-USD", 5*time.Minute, 60000, 60010, 60020),
	}, nil)

	g := newGenerator(p)
	sig := g.Generate(active, g.Snapshot(context.Background()))

	assert.Equal(t, models.DirectionLong, sig.Direction)
	assert.Equal(t, models.ReasonStrongUp, sig.Reason)
	assert.InDelta(t, 0.002, sig.Change, 1e-12)
	assert.Equal(t, 100.2, sig.LeadingPrice)
	assert.Equal(t, 60020.0, sig.TargetPrice)
	assert.Equal(t, models.PriceSourceIntraday, sig.PriceSource)
	assert.Equal(t, "ACTIVE", sig.RegimeLabel())
	assert.Equal(t, t0.Add(time.Second), sig.GeneratedAt)
	p.AssertNotCalled(t, "FetchRecentDailyCloses", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateFallsBackToDailyAndStaysFlat(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchIntradayCloses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &models.DataRetrievalError{Op: "intraday", Err: assert.AnError})
	p.On("FetchRecentDailyCloses", mock.Anything, []string{"TSLA", "BTC-USD"}, 2).Return([]models.PriceSeries{
		closes("TSLA", 24*time.Hour, 180, 190),
		closes("BTC-USD", 24*time.Hour, 67000, 68000, 69000),
	}, nil)

	g := newGenerator(p)
	sig := g.Generate(active, g.Snapshot(context.Background()))

	assert.Equal(t, models.DirectionFlat, sig.Direction)
	assert.Equal(t, models.ReasonBelowThreshold, sig.Reason)
	assert.Zero(t, sig.Change)
	assert.Equal(t, 190.0, sig.LeadingPrice)
	assert.Equal(t, 69000.0, sig.TargetPrice)
	assert.Equal(t, models.PriceSourceDailyFallback, sig.PriceSource)
}

func TestGenerateFallsBackWhenFewerThanTwoAlignedRows(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchIntradayCloses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceSeries{
		closes("TSLA", 5*time.Minute, 100),
		closes("BTC-USD", 5*time.Minute, 60000, 60010),
	}, nil)
	p.On("FetchRecentDailyCloses", mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceSeries{
		closes("TSLA", 24*time.Hour, 180),
		closes("BTC-USD", 24*time.Hour, 67000),
	}, nil)

	snap := newGenerator(p).Snapshot(context.Background())
	assert.Equal(t, models.PriceSourceDailyFallback, snap.Source)
}

func TestGenerateWhenEverythingFails(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchIntradayCloses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &models.DataRetrievalError{Op: "intraday", Err: assert.AnError})
	p.On("FetchRecentDailyCloses", mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceSeries{
		closes("BTC-USD", 24*time.Hour, 67000),
	}, nil)

	g := newGenerator(p)
	sig := g.Generate(active, g.Snapshot(context.Background()))

	assert.Equal(t, models.DirectionFlat, sig.Direction)
	assert.Equal(t, models.PriceSourceUnavailable, sig.PriceSource)
	assert.Zero(t, sig.LeadingPrice)
	assert.Zero(t, sig.TargetPrice)
}

func TestIntradaySnapshotRejectsBadPrice(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchIntradayCloses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceSeries{
		closes("TSLA", 5*time.Minute, 100, 0),
		closes("BTC-USD", 5*time.Minute, 60000, 60010),
	}, nil)

	_, err := newGenerator(p).IntradaySnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsInsufficientData(err))
}
