package usecase

import (
	"context"
	"sync"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	domsvc "RegimeEdge/internal/domain/service"
	"RegimeEdge/pkg/logger"
)

// SignalService recomputes the regime and the live snapshot on every call.
type SignalService struct {
	regime    *RegimeService
	generator *SignalGenerator
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	timeout   time.Duration
}

// NewSignalService wires the service. publisher and metrics may be nil.
func NewSignalService(regime *RegimeService, generator *SignalGenerator, publisher domrepo.SignalPublisher, metrics domrepo.Metrics, log *logger.Logger) *SignalService {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalService{
		regime:    regime,
		generator: generator,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		timeout:   30 * time.Second,
	}
}

// ComputeSignal always returns a signal. The regime and the price snapshot are
// computed concurrently and merged.
func (s *SignalService) ComputeSignal(ctx context.Context) models.Signal {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		regime models.RegimeState
		snap   Snapshot
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		regime = s.regime.Current(ctx)
	}()
	go func() {
		defer wg.Done()
		snap = s.generator.Snapshot(ctx)
	}()
	wg.Wait()

	sig := s.generator.Generate(regime, snap)
	s.record(sig, time.Since(start))
	s.log.Info("signal computed",
		logger.String("direction", string(sig.Direction)),
		logger.String("reason", sig.Reason),
		logger.String("regime", sig.RegimeLabel()),
		logger.Float64("p_value", sig.PValue),
		logger.Float64("change", sig.Change),
		logger.String("price_source", string(sig.PriceSource)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishSignal(ctx, sig); err != nil {
			s.log.Error("publish signal failed", logger.Error(err))
			if s.metrics != nil {
				s.metrics.RecordError("publish")
			}
		}
	}
	return sig
}

// Regime returns the current regime summary.
func (s *SignalService) Regime(ctx context.Context) models.RegimeState {
	return s.regime.Current(ctx)
}

func (s *SignalService) record(sig models.Signal, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSignal(string(sig.Direction), string(sig.PriceSource))
	if sig.PriceSource != models.PriceSourceIntraday {
		s.metrics.RecordError(string(sig.PriceSource))
	}
	if sig.LeadingPrice > 0 {
		s.metrics.RecordLastPrice(sig.Leading, sig.LeadingPrice)
	}
	if sig.TargetPrice > 0 {
		s.metrics.RecordLastPrice(sig.Target, sig.TargetPrice)
	}
	s.metrics.RecordLatency("compute_signal", d.Seconds())
}

var _ domsvc.SignalSource = (*SignalService)(nil)
