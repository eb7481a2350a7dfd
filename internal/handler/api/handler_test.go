package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"RegimeEdge/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	sig    models.Signal
	regime models.RegimeState
	calls  atomic.Int32
}

func (s *stubSource) ComputeSignal(context.Context) models.Signal {
	s.calls.Add(1)
	return s.sig
}

func (s *stubSource) Regime(context.Context) models.RegimeState { return s.regime }

var generated = time.Date(2024, 6, 3, 14, 30, 5, 0, time.UTC)

func longSource() *stubSource {
	return &stubSource{
		sig: models.Signal{
			Direction:    models.DirectionLong,
			Reason:       models.ReasonStrongUp,
			Leading:      "TSLA",
			Target:       "BTC-USD",
			RegimeActive: true,
			PValue:       0.0312,
			Change:       0.0021,
			LeadingPrice: 181.25,
			TargetPrice:  67123.4,
			PriceSource:  models.PriceSourceIntraday,
			GeneratedAt:  generated,
		},
		regime: models.RegimeState{AsOf: generated, PValue: 0.0312, Active: true},
	}
}

func newTestEcho(h *SignalHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func testConfig() Config {
	return Config{Leading: "TSLA", Target: "BTC-USD", Window: 90, MaxLag: 2, Threshold: 0.10}
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDashboardRendersSignal(t *testing.T) {
	e := newTestEcho(NewSignalHandler(longSource(), testConfig()))

	rec := get(e, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `content="60"`)
	assert.Contains(t, body, "LONG BTC-USD")
	assert.Contains(t, body, "#00ff41")
	assert.Contains(t, body, "0.210%")
	assert.Contains(t, body, "$67,123.40")
	assert.Contains(t, body, "$181.25")
	assert.Contains(t, body, "2024-06-03 14:30:05 UTC")
	assert.Contains(t, body, "ACTIVE")
}

func TestDashboardFlatOmitsTarget(t *testing.T) {
	src := longSource()
	src.sig.Direction = models.DirectionFlat
	src.sig.Reason = models.ReasonBelowThreshold
	src.sig.Change = 0.00149
	e := newTestEcho(NewSignalHandler(src, testConfig()))

	body := get(e, "/").Body.String()
	assert.Contains(t, body, `<div class="signal">FLAT</div>`)
	assert.NotContains(t, body, "FLAT BTC-USD")
	assert.Contains(t, body, "0.149%")
	assert.Contains(t, body, "#888888")
}

func TestDashboardRefreshParam(t *testing.T) {
	e := newTestEcho(NewSignalHandler(longSource(), testConfig()))

	assert.Contains(t, get(e, "/?refresh=30").Body.String(), `content="30"`)
	assert.Equal(t, http.StatusBadRequest, get(e, "/?refresh=1").Code)
}

func TestSignalJSON(t *testing.T) {
	e := newTestEcho(NewSignalHandler(longSource(), testConfig()))

	rec := get(e, "/api/signal")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int                   `json:"status"`
		Data   models.SignalResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, models.DirectionLong, resp.Data.Direction)
	assert.Equal(t, "ACTIVE", resp.Data.Regime)
	assert.Equal(t, "+0.210%", resp.Data.ChangePct)
	assert.Equal(t, 0.0312, resp.Data.PValue)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
}

func TestRegimeJSON(t *testing.T) {
	src := longSource()
	src.regime = models.InactiveRegime()
	e := newTestEcho(NewSignalHandler(src, testConfig()))

	rec := get(e, "/api/regime")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.RegimeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INACTIVE", resp.Data.Regime)
	assert.Equal(t, 1.0, resp.Data.PValue)
	assert.True(t, resp.Data.Defaulted)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestRegimeJSONRoundsPValue(t *testing.T) {
	src := longSource()
	src.regime = models.RegimeState{AsOf: generated, PValue: 0.0312345678, Active: true}
	e := newTestEcho(NewSignalHandler(src, testConfig()))

	var resp struct {
		Data models.RegimeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(get(e, "/api/regime").Body.Bytes(), &resp))
	assert.Equal(t, 0.03123, resp.Data.PValue)
	assert.Equal(t, "ACTIVE", resp.Data.Regime)
}

func TestReportPage(t *testing.T) {
	h := NewSignalHandler(longSource(), testConfig())
	h.now = func() time.Time { return generated }
	e := newTestEcho(h)

	rec := get(e, "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "TSLA to BTC-USD Regime Edge")
	assert.Contains(t, body, "June 03, 2024 at 14:30 UTC")
	assert.Contains(t, body, "ACTIVE (p-value 0.03120)")
}

func TestHealth(t *testing.T) {
	e := newTestEcho(NewSignalHandler(longSource(), testConfig()))
	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)

	down := NewSignalHandler(longSource(), testConfig(), WithHealthCheck(func(context.Context) error {
		return errors.New("clickhouse down")
	}))
	assert.Equal(t, http.StatusServiceUnavailable, get(newTestEcho(down), "/healthz").Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Burst = 2
	cfg.Rate = 0.001
	e := newTestEcho(NewSignalHandler(longSource(), cfg))

	assert.Equal(t, http.StatusOK, get(e, "/api/signal").Code)
	assert.Equal(t, http.StatusOK, get(e, "/api/signal").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "/api/signal").Code)
	// buckets are per endpoint
	assert.Equal(t, http.StatusOK, get(e, "/api/regime").Code)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", money(0))
	assert.Equal(t, "999.99", money(999.99))
	assert.Equal(t, "1,000.00", money(1000))
	assert.Equal(t, "1,234,567.89", money(1234567.891))
	assert.Equal(t, "-12,345.60", money(-12345.6))
}

func TestStreamPushesSignals(t *testing.T) {
	src := longSource()
	srv := httptest.NewServer(newTestEcho(NewSignalHandler(src, testConfig())))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signal?interval=5"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.SignalResponse
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.DirectionLong, got.Direction)
	assert.Equal(t, "TSLA", got.Leading)
	assert.GreaterOrEqual(t, src.calls.Load(), int32(1))
}

func TestStreamRejectsBadInterval(t *testing.T) {
	e := newTestEcho(NewSignalHandler(longSource(), testConfig()))
	assert.Equal(t, http.StatusBadRequest, get(e, "/ws/signal?interval=1").Code)
}
