package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrSingularDesign = errors.New("singular design matrix")
	ErrZeroResidual   = errors.New("zero residual sum of squares")
	ErrTooFewObs      = errors.New("too few observations for lag")
	ErrNonFinite      = errors.New("non-finite statistic")
)

const zeroResidualTol = 1e-14

// LagTest is the SSR based F test at one lag.
type LagTest struct {
	Lag    int
	F      float64
	PValue float64
	DfNum  int
	DfDen  int
}

type GrangerResult struct {
	Lags []LagTest
}

// AtLag returns the test for lag, ok is false when it was not computed.
func (r GrangerResult) AtLag(lag int) (LagTest, bool) {
	for _, t := range r.Lags {
		if t.Lag == lag {
			return t, true
		}
	}
	return LagTest{}, false
}

// GrangerFTest tests whether cause helps predict effect, for every lag 1..maxLag.
//
// At lag p the last n-p observations are regressed twice: effect on a constant and
// its own p lags (restricted), then with cause's p lags added (unrestricted).
// F = ((ssrR-ssrU)/p) / (ssrU/(nobs-2p-1)) and the p-value is the F(p, nobs-2p-1)
// survival function.
func GrangerFTest(effect, cause []float64, maxLag int) (GrangerResult, error) {
	if len(effect) != len(cause) {
		return GrangerResult{}, fmt.Errorf("granger: length mismatch %d vs %d", len(effect), len(cause))
	}
	if len(effect) == 0 {
		return GrangerResult{}, ErrTooFewObs
	}
	if maxLag < 1 {
		return GrangerResult{}, fmt.Errorf("granger: max lag %d < 1", maxLag)
	}
	if isConstant(effect) || isConstant(cause) {
		return GrangerResult{}, fmt.Errorf("granger: constant series: %w", ErrSingularDesign)
	}
	res := GrangerResult{Lags: make([]LagTest, 0, maxLag)}
	for p := 1; p <= maxLag; p++ {
		t, err := lagFTest(effect, cause, p)
		if err != nil {
			return res, fmt.Errorf("granger lag %d: %w", p, err)
		}
		res.Lags = append(res.Lags, t)
	}
	return res, nil
}

// MaxLagPValue runs GrangerFTest and keeps only the p-value at maxLag.
func MaxLagPValue(effect, cause []float64, maxLag int) (float64, error) {
	res, err := GrangerFTest(effect, cause, maxLag)
	if err != nil {
		return 1.0, err
	}
	t, _ := res.AtLag(maxLag)
	return t.PValue, nil
}

func lagFTest(effect, cause []float64, p int) (LagTest, error) {
	n := len(effect)
	nobs := n - p
	dfDen := nobs - 2*p - 1
	if nobs <= 0 || dfDen < 1 {
		return LagTest{}, ErrTooFewObs
	}

	y := mat.NewDense(nobs, 1, nil)
	restricted := mat.NewDense(nobs, 1+p, nil)
	unrestricted := mat.NewDense(nobs, 1+2*p, nil)
	for r := 0; r < nobs; r++ {
		t := r + p
		y.Set(r, 0, effect[t])
		restricted.Set(r, 0, 1)
		unrestricted.Set(r, 0, 1)
		for k := 1; k <= p; k++ {
			restricted.Set(r, k, effect[t-k])
			unrestricted.Set(r, k, effect[t-k])
			unrestricted.Set(r, p+k, cause[t-k])
		}
	}

	ssrR, err := residualSS(restricted, y)
	if err != nil {
		return LagTest{}, err
	}
	ssrU, err := residualSS(unrestricted, y)
	if err != nil {
		return LagTest{}, err
	}

	f := (ssrR - ssrU) / ssrU * float64(dfDen) / float64(p)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return LagTest{}, ErrNonFinite
	}
	if f < 0 {
		// rounding when the cause adds nothing
		f = 0
	}
	pv := distuv.F{D1: float64(p), D2: float64(dfDen)}.Survival(f)
	if math.IsNaN(pv) {
		return LagTest{}, ErrNonFinite
	}
	return LagTest{Lag: p, F: f, PValue: clamp01(pv), DfNum: p, DfDen: dfDen}, nil
}

// residualSS fits y on x by least squares through a QR factorization.
func residualSS(x, y *mat.Dense) (float64, error) {
	var qr mat.QR
	qr.Factorize(x)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return 0, ErrSingularDesign
	}

	var fitted mat.Dense
	fitted.Mul(x, &beta)

	rows, _ := y.Dims()
	ssr, scale := 0.0, 0.0
	for i := 0; i < rows; i++ {
		d := y.At(i, 0) - fitted.At(i, 0)
		ssr += d * d
		scale += y.At(i, 0) * y.At(i, 0)
	}
	if math.IsNaN(ssr) || math.IsInf(ssr, 0) {
		return 0, ErrNonFinite
	}
	if ssr <= zeroResidualTol*scale {
		return 0, ErrZeroResidual
	}
	return ssr, nil
}

func isConstant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
