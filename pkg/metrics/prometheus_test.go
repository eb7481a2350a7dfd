package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSignal("LONG", "intraday")
	r.RecordSignal("LONG", "intraday")
	r.RecordRegime(true, 0.03, false)
	r.RecordRegime(false, 1, true)
	r.RecordWindowFailures(3)
	r.RecordWindowFailures(0)
	r.RecordLastPrice("TSLA", 250.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("LONG", "intraday")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.regimePValue))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.regimeActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.regimeDefaults))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.windowFailures))
	assert.Equal(t, 250.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("TSLA")))
}
