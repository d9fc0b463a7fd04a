package repository

import (
	"context"
	"fmt"

	"CryptoPredict/internal/domain/models"
)

// MessagePublisher is the slice of pkg/kafka.Producer the publisher needs.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaForecastPublisher emits one JSON message per served forecast, keyed by symbol.
type KafkaForecastPublisher struct {
	pub   MessagePublisher
	topic string
}

// NewKafkaForecastPublisher publishes events to topic.
func NewKafkaForecastPublisher(pub MessagePublisher, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{pub: pub, topic: topic}
}

// Record publishes ev keyed by symbol.
func (p *KafkaForecastPublisher) Record(ctx context.Context, ev models.ForecastEvent) error {
	if err := p.pub.Publish(ctx, p.topic, []byte(ev.Symbol), toMessage(ev)); err != nil {
		return fmt.Errorf("publish forecast event: %w", err)
	}
	return nil
}
