package api

import (
	"context"
	"time"

	"RegimeEdge/internal/domain/models"
	"RegimeEdge/internal/service/metrics"
	xhttp "RegimeEdge/pkg/http"
	applogger "RegimeEdge/pkg/logger"

	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

// Stream upgrades to a websocket and pushes a fresh signal every interval seconds
// until the client goes away.
func (h *SignalHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered the client
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// control frames are only processed while reading
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Duration(req.Interval) * time.Second)
	defer ticker.Stop()

	for {
		sig := h.source.ComputeSignal(ctx)
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(models.NewSignalResponse(sig)); err != nil {
			h.log.Debug("stream closed", applogger.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
