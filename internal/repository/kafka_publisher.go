package repository

import (
	"context"

	"ConflictVol/internal/domain/models"
	pkgkafka "ConflictVol/pkg/kafka"
	applogger "ConflictVol/pkg/logger"
)

// KafkaForecastPublisher implements ForecastPublisher over a Kafka producer.
// Records are keyed by commodity so per-commodity ordering is preserved.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaForecastPublisher) SetLogger(l *applogger.Logger) { p.l = l }

// PublishBatch publishes forecast records as JSON messages.
func (p *KafkaForecastPublisher) PublishBatch(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(r.Commodity),
			Value: r,
		})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		if p.l != nil {
			p.l.Error("kafka publish_batch error",
				applogger.String("topic", p.topic),
				applogger.Error(err),
			)
		}
		return err
	}
	if p.l != nil {
		p.l.Info("kafka publish_batch ok",
			applogger.String("topic", p.topic),
			applogger.Int("rows", len(records)),
		)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaForecastPublisher) Close() error { return p.producer.Close() }
