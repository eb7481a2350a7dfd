package analytics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// causalPair returns x and y with y[t] = 0.8*x[t-1] + small noise.
func causalPair(n int, seed int64) (x, y []float64) {
	rng := rand.New(rand.NewSource(seed))
	x = make([]float64, n)
	y = make([]float64, n)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	y[0] = rng.NormFloat64() * 0.1
	for i := 1; i < n; i++ {
		y[i] = 0.8*x[i-1] + 0.1*rng.NormFloat64()
	}
	return x, y
}

func noise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func TestGrangerDetectsCausality(t *testing.T) {
	x, y := causalPair(200, 1)

	res, err := GrangerFTest(y, x, 2)
	require.NoError(t, err)
	require.Len(t, res.Lags, 2)

	for i, lt := range res.Lags {
		assert.Equal(t, i+1, lt.Lag)
		assert.Equal(t, lt.Lag, lt.DfNum)
		assert.Equal(t, 200-lt.Lag-2*lt.Lag-1, lt.DfDen)
		assert.Less(t, lt.PValue, 0.01)
		assert.Greater(t, lt.F, 0.0)
	}

	pv, err := MaxLagPValue(y, x, 2)
	require.NoError(t, err)
	lt, ok := res.AtLag(2)
	require.True(t, ok)
	assert.Equal(t, lt.PValue, pv)
}

func TestGrangerPValueInUnitInterval(t *testing.T) {
	a, b := noise(90, 7), noise(90, 8)
	res, err := GrangerFTest(a, b, 2)
	require.NoError(t, err)
	for _, lt := range res.Lags {
		assert.GreaterOrEqual(t, lt.PValue, 0.0)
		assert.LessOrEqual(t, lt.PValue, 1.0)
		assert.GreaterOrEqual(t, lt.F, 0.0)
	}
}

func TestGrangerConstantCauseFails(t *testing.T) {
	effect := noise(90, 3)
	cause := make([]float64, 90)

	_, err := GrangerFTest(effect, cause, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingularDesign)
}

func TestGrangerTooFewObservations(t *testing.T) {
	_, err := GrangerFTest(noise(4, 1), noise(4, 2), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooFewObs)
}

func TestGrangerLengthMismatch(t *testing.T) {
	_, err := GrangerFTest(noise(10, 1), noise(9, 2), 1)
	assert.Error(t, err)
}

func TestGrangerPerfectFitFails(t *testing.T) {
	x := noise(60, 5)
	y := make([]float64, 60)
	for i := 1; i < len(y); i++ {
		y[i] = x[i-1]
	}
	y[0] = 0.5

	_, err := GrangerFTest(y, x, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroResidual)
}
