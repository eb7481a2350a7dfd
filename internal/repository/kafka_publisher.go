package repository

import (
	"context"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	pkgkafka "RegimeEdge/pkg/kafka"

	"github.com/google/uuid"
)

// SignalEvent is the payload written for each generated signal.
type SignalEvent struct {
	EventID      string  `json:"event_id"`
	Direction    string  `json:"direction"`
	Reason       string  `json:"reason"`
	Leading      string  `json:"leading"`
	Target       string  `json:"target"`
	Regime       string  `json:"regime"`
	PValue       float64 `json:"p_value"`
	Change       float64 `json:"change"`
	LeadingPrice float64 `json:"leading_price"`
	TargetPrice  float64 `json:"target_price"`
	PriceSource  string  `json:"price_source"`
	GeneratedAt  string  `json:"generated_at"`
}

// KafkaPublisher implements SignalPublisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.SignalPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, s models.Signal) error {
	ev := SignalEvent{
		EventID:      uuid.NewString(),
		Direction:    string(s.Direction),
		Reason:       s.Reason,
		Leading:      s.Leading,
		Target:       s.Target,
		Regime:       s.RegimeLabel(),
		PValue:       models.RoundPValue(s.PValue),
		Change:       s.Change,
		LeadingPrice: s.LeadingPrice,
		TargetPrice:  s.TargetPrice,
		PriceSource:  string(s.PriceSource),
		GeneratedAt:  s.GeneratedAt.UTC().Format(time.RFC3339),
	}
	return p.producer.Publish(ctx, p.topic, pkgkafka.Message{
		Key:   []byte(s.Leading + ":" + s.Target),
		Value: ev,
		Headers: map[string]string{
			"event_id":   ev.EventID,
			"event_type": "signal",
		},
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
