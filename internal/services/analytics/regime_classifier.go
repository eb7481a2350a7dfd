package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"RegimeEdge/internal/domain/models"
	"RegimeEdge/internal/domain/repository"
	"RegimeEdge/pkg/cache"
	"RegimeEdge/pkg/logger"
)

const (
	DefaultWindow    = 90
	DefaultMaxLag    = 2
	DefaultThreshold = 0.10
)

// CausalityTest returns the p-value of "cause helps predict effect" over one window.
type CausalityTest func(effect, cause []float64, maxLag int) (float64, error)

// RollingClassifier scores fixed-width windows sliding over the aligned return series
// and gates the regime on the latest score.
type RollingClassifier struct {
	window    int
	maxLag    int
	threshold float64
	test      CausalityTest
	cache     *ScoreCache
	log       *logger.Logger
	metrics   repository.Metrics
}

type Option func(*RollingClassifier)

func WithWindow(w int) Option { return func(c *RollingClassifier) { c.window = w } }

func WithMaxLag(l int) Option { return func(c *RollingClassifier) { c.maxLag = l } }

func WithThreshold(t float64) Option { return func(c *RollingClassifier) { c.threshold = t } }

func WithCausalityTest(t CausalityTest) Option { return func(c *RollingClassifier) { c.test = t } }

func WithScoreCache(sc *ScoreCache) Option { return func(c *RollingClassifier) { c.cache = sc } }

func WithLogger(l *logger.Logger) Option { return func(c *RollingClassifier) { c.log = l } }

func WithMetrics(m repository.Metrics) Option { return func(c *RollingClassifier) { c.metrics = m } }

func NewRollingClassifier(opts ...Option) *RollingClassifier {
	c := &RollingClassifier{
		window:    DefaultWindow,
		maxLag:    DefaultMaxLag,
		threshold: DefaultThreshold,
		test:      MaxLagPValue,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RollingClassifier) Window() int        { return c.window }
func (c *RollingClassifier) Threshold() float64 { return c.threshold }

// Classify returns the regime state of the latest window.
func (c *RollingClassifier) Classify(ctx context.Context, leading, target models.ReturnSeries) (models.RegimeState, error) {
	scores, err := c.Scores(ctx, leading, target)
	if err != nil {
		return models.InactiveRegime(), err
	}
	last := scores[len(scores)-1]
	state := models.NewRegimeState(last, c.threshold)
	c.log.Debug("regime classified",
		logger.String("leading", leading.Symbol),
		logger.String("target", target.Symbol),
		logger.Float64("p_value", state.PValue),
		logger.Bool("active", state.Active),
		logger.Time("as_of", state.AsOf),
	)
	return state, nil
}

// Scores returns one RollingScore per window end, len(returns)-window in total.
// Score i is dated with the first return after its window. A failing window
// scores 1.0 and does not stop the scan.
func (c *RollingClassifier) Scores(ctx context.Context, leading, target models.ReturnSeries) ([]models.RollingScore, error) {
	if err := checkAligned(leading, target); err != nil {
		return nil, err
	}
	n := target.Len()
	if n < c.window+1 {
		return nil, &models.InsufficientDataError{Op: "rolling regime", Have: n, Need: c.window + 1}
	}

	times := target.Times()
	in := ScoreSnapshot{
		Window:  c.window,
		MaxLag:  c.maxLag,
		Times:   make([]int64, n),
		Leading: leading.Values(),
		Target:  target.Values(),
	}
	for i, t := range times {
		in.Times[i] = t.UnixNano()
	}

	compute := func(ctx context.Context, from int) ([]float64, int, error) {
		return c.scan(ctx, in.Target, in.Leading, from)
	}

	start := time.Now()
	var res ScoreResolution
	if c.cache != nil {
		key := cache.GenerateKeyWithParams("regime:scores", leading.Symbol, target.Symbol)
		r, err := c.cache.Resolve(ctx, key, in, compute)
		if err != nil {
			return nil, err
		}
		res = r
	} else {
		scores, failures, err := compute(ctx, 0)
		if err != nil {
			return nil, err
		}
		res = ScoreResolution{Scores: scores, Failures: failures}
	}

	if res.Failures > 0 {
		c.log.Warn("rolling windows failed and scored 1.0",
			logger.Int("failed", res.Failures),
			logger.Int("windows", n-c.window-res.Reused),
		)
	}
	if c.metrics != nil {
		c.metrics.RecordWindowFailures(res.Failures)
		c.metrics.RecordLatency("rolling_scan", time.Since(start).Seconds())
	}

	out := make([]models.RollingScore, len(res.Scores))
	for k, pv := range res.Scores {
		out[k] = models.RollingScore{AsOf: times[k+c.window], PValue: pv}
	}
	return out, nil
}

// scan scores windows [k, k+window) for k from `from` up to n-window-1.
func (c *RollingClassifier) scan(ctx context.Context, effect, cause []float64, from int) ([]float64, int, error) {
	total := len(effect) - c.window
	if from >= total {
		return nil, 0, nil
	}
	scores := make([]float64, 0, total-from)
	failures := 0
	for k := from; k < total; k++ {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}
		pv, err := c.evalWindow(effect[k:k+c.window], cause[k:k+c.window])
		if err != nil {
			failures++
			c.log.Debug("window failed", logger.Int("start", k), logger.Error(err))
			pv = 1.0
		}
		scores = append(scores, pv)
	}
	return scores, failures, nil
}

// evalWindow runs the causality test, turning any failure, panics included, into
// a NumericalComputationError.
func (c *RollingClassifier) evalWindow(effect, cause []float64) (pv float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			pv, err = 1.0, &models.NumericalComputationError{Op: "causality test", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	pv, err = c.test(effect, cause, c.maxLag)
	if err != nil {
		return 1.0, &models.NumericalComputationError{Op: "causality test", Err: err}
	}
	if pv < 0 || pv > 1 || math.IsNaN(pv) {
		return 1.0, &models.NumericalComputationError{Op: "causality test", Err: fmt.Errorf("p-value %v out of range", pv)}
	}
	return pv, nil
}

func checkAligned(leading, target models.ReturnSeries) error {
	if leading.Len() != target.Len() {
		return &models.InsufficientDataError{
			Op:     "rolling regime",
			Detail: fmt.Sprintf("misaligned series: %d vs %d returns", leading.Len(), target.Len()),
		}
	}
	for i := range leading.Points {
		if !leading.Points[i].Time.Equal(target.Points[i].Time) {
			return &models.InsufficientDataError{
				Op:     "rolling regime",
				Detail: fmt.Sprintf("misaligned series at %d", i),
			}
		}
	}
	return nil
}
