package repository

import (
	"context"
	"fmt"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	pkgkafka "StratTick/pkg/kafka"
)

// KafkaBatchSink publishes each batch as one JSON message keyed by symbol,
// so consumers see the batches of one symbol in cycle order.
type KafkaBatchSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaBatchSink(producer *pkgkafka.Producer, topic string) *KafkaBatchSink {
	return &KafkaBatchSink{producer: producer, topic: topic}
}

func (k *KafkaBatchSink) Publish(ctx context.Context, b *models.RecommendationBatch) error {
	if err := k.producer.Publish(ctx, k.topic, []byte(b.Symbol), b); err != nil {
		return fmt.Errorf("kafka publish %s: %w", k.topic, err)
	}
	return nil
}

// Close leaves the shared producer open, it is closed by its owner.
func (k *KafkaBatchSink) Close() error { return nil }

var _ domrepo.BatchSink = (*KafkaBatchSink)(nil)
