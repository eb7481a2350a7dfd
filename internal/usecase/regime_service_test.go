package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeEdge/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConservativeRegime(t *testing.T) {
	ok := models.RegimeState{AsOf: t0, PValue: 0.02, Active: true}
	assert.Equal(t, ok, ConservativeRegime(ok, nil))

	for _, err := range []error{
		&models.DataRetrievalError{Op: "daily", Err: assert.AnError},
		&models.InsufficientDataError{Op: "scan", Have: 10, Need: 91},
		errors.New("boom"),
	} {
		got := ConservativeRegime(ok, err)
		assert.False(t, got.Active)
		assert.Equal(t, 1.0, got.PValue)
		assert.True(t, got.Defaulted)
	}
}

func TestRegimeServiceEvaluatePassesAlignedReturns(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &mockProvider{}
	p.On("FetchDailyCloses", mock.Anything, []string{"TSLA", "BTC-USD"}, start).Return([]models.PriceSeries{
		closes("TSLA", 24*time.Hour, 100, 101, 102, 103),
		closes("BTC-USD", 24*time.Hour, 50, 51, 52),
	}, nil)

	want := models.RegimeState{AsOf: t0, PValue: 0.04, Active: true}
	c := &mockClassifier{}
	c.On("Classify", mock.Anything,
		mock.MatchedBy(func(r models.ReturnSeries) bool { return r.Symbol == "TSLA" && r.Len() == 2 }),
		mock.MatchedBy(func(r models.ReturnSeries) bool { return r.Symbol == "BTC-USD" && r.Len() == 2 }),
	).Return(want, nil)

	m := &recordingMetrics{}
	svc := NewRegimeService(p, c, "TSLA", "BTC-USD", start, nil, m)
	got := svc.Current(context.Background())

	assert.Equal(t, want, got)
	require.Len(t, m.regimes, 1)
	assert.Empty(t, m.errors)
	c.AssertExpectations(t)
}

func TestRegimeServiceDegradesOnProviderFailure(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchDailyCloses", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &models.DataRetrievalError{Op: "daily", Err: assert.AnError})

	m := &recordingMetrics{}
	svc := NewRegimeService(p, &mockClassifier{}, "TSLA", "BTC-USD", t0, nil, m)

	_, err := svc.Evaluate(context.Background())
	assert.True(t, models.IsDataRetrieval(err))

	got := svc.Current(context.Background())
	assert.Equal(t, models.InactiveRegime(), got)
	assert.Contains(t, m.errors, "data_retrieval")
}

func TestRegimeServiceDegradesOnClassifierFailure(t *testing.T) {
	p := &mockProvider{}
	p.On("FetchDailyCloses", mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceSeries{
		closes("TSLA", 24*time.Hour, 100, 101, 102),
		closes("BTC-USD", 24*time.Hour, 50, 51, 52),
	}, nil)
	c := &mockClassifier{}
	c.On("Classify", mock.Anything, mock.Anything, mock.Anything).
		Return(models.InactiveRegime(), &models.InsufficientDataError{Op: "rolling scan", Have: 2, Need: 91})

	m := &recordingMetrics{}
	got := NewRegimeService(p, c, "TSLA", "BTC-USD", t0, nil, m).Current(context.Background())
	assert.False(t, got.Active)
	assert.Contains(t, m.errors, "insufficient_data")
}
