package usecase

import (
	"context"
	"fmt"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	"RegimeEdge/pkg/logger"
)

// Backfill copies closes from a live provider into a price store so the store can
// serve as the provider later.
type Backfill struct {
	source domrepo.PriceProvider
	store  domrepo.PriceStore
	log    *logger.Logger
}

func NewBackfill(source domrepo.PriceProvider, store domrepo.PriceStore, log *logger.Logger) *Backfill {
	if log == nil {
		log = logger.Nop()
	}
	return &Backfill{source: source, store: store, log: log}
}

// BackfillResult counts the stored points per interval.
type BackfillResult struct {
	Daily    int
	Intraday int
}

// Run stores daily closes since start and intraday bars over lookback.
// A failed intraday fetch is logged and does not fail the run.
func (b *Backfill) Run(ctx context.Context, symbols []string, start time.Time, lookback time.Duration, bar domrepo.Interval) (BackfillResult, error) {
	var res BackfillResult
	if err := b.store.Init(ctx); err != nil {
		return res, err
	}

	daily, err := b.source.FetchDailyCloses(ctx, symbols, start)
	if err != nil {
		return res, fmt.Errorf("backfill daily: %w", err)
	}
	if err := b.store.StoreCloses(ctx, domrepo.Interval1d, daily); err != nil {
		return res, err
	}
	res.Daily = countPoints(daily)

	intraday, err := b.source.FetchIntradayCloses(ctx, symbols, lookback, bar)
	if err != nil {
		b.log.Warn("backfill intraday skipped", logger.Error(err))
		return res, nil
	}
	if err := b.store.StoreCloses(ctx, bar, intraday); err != nil {
		return res, err
	}
	res.Intraday = countPoints(intraday)

	b.log.Info("backfill done",
		logger.Strings("symbols", symbols),
		logger.Int("daily", res.Daily),
		logger.Int("intraday", res.Intraday),
	)
	return res, nil
}

func countPoints(series []models.PriceSeries) int {
	n := 0
	for _, s := range series {
		n += s.Len()
	}
	return n
}
