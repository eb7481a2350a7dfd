package usecase

import (
	"context"
	"fmt"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	"RegimeEdge/internal/services/features"
	"RegimeEdge/pkg/logger"
)

const DefaultChangeThreshold = 0.0015

// Decide applies the decision table. The first matching row wins and the
// comparisons are strict.
func Decide(regimeActive bool, change, threshold float64) (models.Direction, string) {
	switch {
	case !regimeActive:
		return models.DirectionFlat, models.ReasonRegimeInactive
	case change > threshold:
		return models.DirectionLong, models.ReasonStrongUp
	case change < -threshold:
		return models.DirectionShort, models.ReasonStrongDown
	default:
		return models.DirectionFlat, models.ReasonBelowThreshold
	}
}

// Snapshot is the price input of one signal.
type Snapshot struct {
	Change       float64
	LeadingPrice float64
	TargetPrice  float64
	Source       models.PriceSource
}

// GeneratorConfig holds the live signal parameters.
type GeneratorConfig struct {
	Leading          string
	Target           string
	ChangeThreshold  float64
	IntradayLookback time.Duration
	Bar              domrepo.Interval
	FallbackDays     int
}

// SignalGenerator reads recent prices and turns them and a regime state into a Signal.
type SignalGenerator struct {
	provider domrepo.PriceProvider
	cfg      GeneratorConfig
	log      *logger.Logger
	now      func() time.Time
}

func NewSignalGenerator(provider domrepo.PriceProvider, cfg GeneratorConfig, log *logger.Logger) *SignalGenerator {
	if cfg.ChangeThreshold <= 0 {
		cfg.ChangeThreshold = DefaultChangeThreshold
	}
	if cfg.IntradayLookback <= 0 {
		cfg.IntradayLookback = 5 * 24 * time.Hour
	}
	if !domrepo.IsValidInterval(cfg.Bar) {
		cfg.Bar = domrepo.DefaultInterval()
	}
	if cfg.FallbackDays <= 0 {
		cfg.FallbackDays = 2
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SignalGenerator{provider: provider, cfg: cfg, log: log, now: time.Now}
}

func (g *SignalGenerator) symbols() []string { return []string{g.cfg.Leading, g.cfg.Target} }

// IntradaySnapshot computes the leading change over the last two aligned bars.
func (g *SignalGenerator) IntradaySnapshot(ctx context.Context) (Snapshot, error) {
	series, err := g.provider.FetchIntradayCloses(ctx, g.symbols(), g.cfg.IntradayLookback, g.cfg.Bar)
	if err != nil {
		return Snapshot{}, err
	}
	table, err := features.Align(series, g.symbols())
	if err != nil {
		return Snapshot{}, err
	}
	if table.Rows() < 2 {
		return Snapshot{}, &models.InsufficientDataError{Op: "intraday snapshot", Have: table.Rows(), Need: 2}
	}
	change, leadingLast, err := features.LastChange(table, g.cfg.Leading)
	if err != nil {
		return Snapshot{}, err
	}
	targetLast, _ := features.LastClose(table, g.cfg.Target)
	return Snapshot{
		Change:       change,
		LeadingPrice: leadingLast,
		TargetPrice:  targetLast,
		Source:       models.PriceSourceIntraday,
	}, nil
}

// FallbackSnapshot takes the most recent daily close of each asset. Change is zero.
func (g *SignalGenerator) FallbackSnapshot(ctx context.Context) (Snapshot, error) {
	series, err := g.provider.FetchRecentDailyCloses(ctx, g.symbols(), g.cfg.FallbackDays)
	if err != nil {
		return Snapshot{}, err
	}
	last := make(map[string]float64, len(series))
	for _, s := range series {
		if p, ok := s.Last(); ok {
			last[s.Symbol] = p.Price
		}
	}
	for _, sym := range g.symbols() {
		if _, ok := last[sym]; !ok {
			return Snapshot{}, &models.InsufficientDataError{
				Op:     "fallback snapshot",
				Detail: fmt.Sprintf("no daily close for %s", sym),
			}
		}
	}
	return Snapshot{
		LeadingPrice: last[g.cfg.Leading],
		TargetPrice:  last[g.cfg.Target],
		Source:       models.PriceSourceDailyFallback,
	}, nil
}

// Snapshot tries the intraday path, then the daily fallback. When both fail the
// snapshot carries zero prices and PriceSourceUnavailable.
func (g *SignalGenerator) Snapshot(ctx context.Context) Snapshot {
	snap, err := g.IntradaySnapshot(ctx)
	if err == nil {
		return snap
	}
	g.log.Warn("intraday prices unavailable, using daily fallback", logger.Error(err))

	snap, err = g.FallbackSnapshot(ctx)
	if err == nil {
		return snap
	}
	g.log.Warn("daily fallback unavailable", logger.Error(err))
	return Snapshot{Source: models.PriceSourceUnavailable}
}

// Generate applies the decision table to regime and snap.
func (g *SignalGenerator) Generate(regime models.RegimeState, snap Snapshot) models.Signal {
	dir, reason := Decide(regime.Active, snap.Change, g.cfg.ChangeThreshold)
	return models.Signal{
		Direction:    dir,
		Reason:       reason,
		Leading:      g.cfg.Leading,
		Target:       g.cfg.Target,
		RegimeActive: regime.Active,
		PValue:       regime.PValue,
		Change:       snap.Change,
		LeadingPrice: snap.LeadingPrice,
		TargetPrice:  snap.TargetPrice,
		PriceSource:  snap.Source,
		GeneratedAt:  g.now().UTC().Truncate(time.Second),
	}
}
