package api

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"RegimeEdge/internal/domain/models"
	domsvc "RegimeEdge/internal/domain/service"
	"RegimeEdge/internal/service/metrics"
	"RegimeEdge/internal/service/ratelimit"
	"RegimeEdge/internal/usecase"
	xhttp "RegimeEdge/pkg/http"
	applogger "RegimeEdge/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Config carries what the pages show besides the live signal.
type Config struct {
	Leading   string
	Target    string
	Window    int
	MaxLag    int
	Threshold float64
	// Refresh is the default dashboard reload period in seconds.
	Refresh int
	// Burst and Rate bound requests per client and endpoint.
	Burst float64
	Rate  float64
}

// SignalHandler serves the dashboard, the report, the JSON API and the signal stream.
type SignalHandler struct {
	source   domsvc.SignalSource
	cfg      Config
	health   func(ctx context.Context) error
	rl       *ratelimit.Limiter
	log      *applogger.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
}

type Option func(*SignalHandler)

// WithHealthCheck makes /healthz report the result of check.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(h *SignalHandler) { h.health = check }
}

func WithLogger(l *applogger.Logger) Option {
	return func(h *SignalHandler) { h.log = l }
}

func NewSignalHandler(source domsvc.SignalSource, cfg Config, opts ...Option) *SignalHandler {
	if cfg.Refresh <= 0 {
		cfg.Refresh = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	h := &SignalHandler{
		source: source,
		cfg:    cfg,
		rl:     ratelimit.New(),
		log:    applogger.Nop(),
		now:    time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.wrap("dashboard", h.Dashboard))
	e.GET("/report", h.wrap("report", h.Report))
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signal", h.wrap("signal", h.Signal))
	g.GET("/regime", h.wrap("regime", h.Regime))
	e.GET("/ws/signal", h.wrap("stream", h.Stream))
}

// wrap adds per-client rate limiting and endpoint latency.
func (h *SignalHandler) wrap(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(c.RealIP()+":"+endpoint, h.cfg.Burst, h.cfg.Rate) {
			h.log.Warn("rate limited",
				applogger.String("endpoint", endpoint),
				applogger.String("remote", c.RealIP()),
			)
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
		}
		return next(c)
	}
}

// RunJanitor drops idle rate limit buckets every interval until ctx is done.
func (h *SignalHandler) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := h.rl.Prune(); n > 0 {
				h.log.Debug("rate limit buckets pruned", applogger.Int("count", n))
			}
		}
	}
}

func (h *SignalHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Refresh == 0 {
		req.Refresh = h.cfg.Refresh
	}

	sig := h.source.ComputeSignal(c.Request().Context())
	return h.render(c, dashboardTmpl, dashboardView{Signal: sig, Refresh: req.Refresh})
}

func (h *SignalHandler) Report(c echo.Context) error {
	state := h.source.Regime(c.Request().Context())
	r := usecase.BuildReport(h.cfg.Leading, h.cfg.Target, state, h.cfg.Window, h.cfg.MaxLag, h.cfg.Threshold, h.now())
	return h.render(c, reportTmpl, r)
}

func (h *SignalHandler) Signal(c echo.Context) error {
	sig := h.source.ComputeSignal(c.Request().Context())
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, models.NewSignalResponse(sig))
}

func (h *SignalHandler) Regime(c echo.Context) error {
	state := h.source.Regime(c.Request().Context())
	return xhttp.SuccessResponse(c, models.RegimeResponse{
		Leading:   h.cfg.Leading,
		Target:    h.cfg.Target,
		Regime:    state.Label(),
		PValue:    models.RoundPValue(state.PValue),
		AsOf:      state.AsOf,
		Defaulted: state.Defaulted,
	})
}

func (h *SignalHandler) Health(c echo.Context) error {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.log.Warn("health check failed", applogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("dependency unavailable").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SignalHandler) render(c echo.Context, t *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		h.log.Error("render page", applogger.String("template", t.Name()), applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("render failed").WithError(err))
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
