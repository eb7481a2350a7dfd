package usecase

import (
	"context"
	"fmt"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	domsvc "RegimeEdge/internal/domain/service"
	"RegimeEdge/internal/services/features"
	"RegimeEdge/pkg/logger"
)

// RegimeService loads daily history for the pair and classifies the current regime.
type RegimeService struct {
	provider   domrepo.PriceProvider
	classifier domsvc.RegimeClassifier
	leading    string
	target     string
	start      time.Time
	log        *logger.Logger
	metrics    domrepo.Metrics
}

func NewRegimeService(provider domrepo.PriceProvider, classifier domsvc.RegimeClassifier, leading, target string, start time.Time, log *logger.Logger, metrics domrepo.Metrics) *RegimeService {
	if log == nil {
		log = logger.Nop()
	}
	return &RegimeService{
		provider:   provider,
		classifier: classifier,
		leading:    leading,
		target:     target,
		start:      start,
		log:        log,
		metrics:    metrics,
	}
}

// Evaluate fetches daily closes since the start date, aligns them, builds log
// returns and classifies. Errors are returned as produced.
func (s *RegimeService) Evaluate(ctx context.Context) (models.RegimeState, error) {
	symbols := []string{s.leading, s.target}
	series, err := s.provider.FetchDailyCloses(ctx, symbols, s.start)
	if err != nil {
		return models.InactiveRegime(), err
	}
	table, err := features.Align(series, symbols)
	if err != nil {
		return models.InactiveRegime(), err
	}
	returns, err := features.BuildReturns(table)
	if err != nil {
		return models.InactiveRegime(), err
	}
	state, err := s.classifier.Classify(ctx, returns[s.leading], returns[s.target])
	if err != nil {
		return models.InactiveRegime(), fmt.Errorf("classify regime: %w", err)
	}
	return state, nil
}

// Current is Evaluate with every failure collapsed to the conservative state.
func (s *RegimeService) Current(ctx context.Context) models.RegimeState {
	state, err := s.Evaluate(ctx)
	if err != nil {
		s.log.Warn("regime unavailable, using inactive regime",
			logger.String("leading", s.leading),
			logger.String("target", s.target),
			logger.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordError(errorKind(err))
		}
	}
	state = ConservativeRegime(state, err)
	if s.metrics != nil {
		s.metrics.RecordRegime(state.Active, state.PValue, state.Defaulted)
	}
	return state
}

// ConservativeRegime returns state unchanged when err is nil and the inactive
// regime (p-value 1.0) otherwise.
func ConservativeRegime(state models.RegimeState, err error) models.RegimeState {
	if err != nil {
		return models.InactiveRegime()
	}
	return state
}

func errorKind(err error) string {
	switch {
	case models.IsDataRetrieval(err):
		return "data_retrieval"
	case models.IsInsufficientData(err):
		return "insufficient_data"
	case models.IsNumerical(err):
		return "numerical"
	default:
		return "other"
	}
}
