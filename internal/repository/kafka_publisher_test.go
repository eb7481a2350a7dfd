package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"RegimeEdge/internal/domain/models"
	pkgkafka "RegimeEdge/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherWritesSignalEvent(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "none", prometheus.NewRegistry()), "signals")

	sig := models.Signal{
		Direction:    models.DirectionLong,
		Reason:       models.ReasonStrongUp,
		Leading:      "TSLA",
		Target:       "BTC-USD",
		RegimeActive: true,
		PValue:       0.0400012,
		Change:       0.002,
		LeadingPrice: 181,
		TargetPrice:  67000,
		PriceSource:  models.PriceSourceIntraday,
		GeneratedAt:  time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishSignal(context.Background(), sig))
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, "TSLA:BTC-USD", string(m.Key))

	var ev SignalEvent
	require.NoError(t, json.Unmarshal(m.Value, &ev))
	assert.Equal(t, "LONG", ev.Direction)
	assert.Equal(t, "ACTIVE", ev.Regime)
	assert.Equal(t, 0.04, ev.PValue)
	assert.Equal(t, "2024-06-03T15:00:00Z", ev.GeneratedAt)
	assert.NotEmpty(t, ev.EventID)

	var eventID string
	for _, h := range m.Headers {
		if h.Key == "event_id" {
			eventID = string(h.Value)
		}
	}
	assert.Equal(t, ev.EventID, eventID)
	require.NoError(t, pub.Close())
}
