package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StratTick/internal/domain/models"
	pkgkafka "StratTick/pkg/kafka"
)

// KafkaCandlesHandler applies candle updates published on a Kafka topic,
// for deployments where another service owns the exchange connection.
type KafkaCandlesHandler struct {
	topic string
	sync  *CandleSync
}

func NewKafkaCandlesHandler(topic string, sync *CandleSync) *KafkaCandlesHandler {
	return &KafkaCandlesHandler{topic: topic, sync: sync}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

// incoming message schema: models.CandleUpdate
func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var u models.CandleUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		if h.sync.metrics != nil {
			h.sync.metrics.RecordError("consumer_unmarshal")
		}
		return err
	}
	u.Candle.Timestamp = u.Candle.Timestamp.UTC()
	if h.sync.metrics != nil {
		h.sync.metrics.RecordLatency("ingest_e2e_seconds", time.Since(u.Candle.Timestamp).Seconds())
	}
	return h.sync.Apply(ctx, u)
}

var _ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
