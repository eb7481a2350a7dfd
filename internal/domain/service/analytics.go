package service

import (
	"context"

	"RegimeEdge/internal/domain/models"
)

// RegimeClassifier scores whether the leading asset currently Granger-causes the target.
type RegimeClassifier interface {
	Classify(ctx context.Context, leading, target models.ReturnSeries) (models.RegimeState, error)
}

// SignalSource produces the current trading signal and regime summary.
type SignalSource interface {
	ComputeSignal(ctx context.Context) models.Signal
	Regime(ctx context.Context) models.RegimeState
}
