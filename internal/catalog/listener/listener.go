package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/catalog/search"
	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/pkg/broker"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

// CatalogListener applies product events published by sibling services (order
// completion marking a listing sold out, account deactivation pulling a
// seller's listings) to the search projection.
type CatalogListener struct {
	consumer *broker.KafkaConsumer
	engine   *search.Engine
	logger   logger.ZapLogger
}

func NewCatalogListener(consumer *broker.KafkaConsumer, engine *search.Engine, logger logger.ZapLogger) *CatalogListener {
	return &CatalogListener{
		consumer: consumer,
		engine:   engine,
		logger:   logger,
	}
}

func (l *CatalogListener) Start(ctx context.Context) {
	l.logger.Info("Starting Catalog Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Catalog Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type ProductEvent struct {
	EventID   string        `json:"event_id"`
	EventType string        `json:"event_type"`
	Payload   model.Product `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	eventProductCreated = "ProductCreated"
	eventProductUpdated = "ProductUpdated"
	eventProductDeleted = "ProductDeleted"
)

func (l *CatalogListener) processMessage(ctx context.Context, value []byte) {
	var event ProductEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case eventProductCreated:
		if err := l.engine.Index(ctx, &event.Payload); err != nil {
			l.logger.Error("Failed to index product from event",
				zap.Int64("product_id", event.Payload.ProductID),
				zap.Error(err))
		}
	case eventProductUpdated:
		if err := l.engine.Update(ctx, &event.Payload, event.Payload.ProductID); err != nil {
			l.logger.Error("Failed to update product from event",
				zap.Int64("product_id", event.Payload.ProductID),
				zap.Error(err))
		}
	case eventProductDeleted:
		if err := l.engine.Delete(ctx, event.Payload.ProductID); err != nil {
			l.logger.Error("Failed to delete product from event",
				zap.Int64("product_id", event.Payload.ProductID),
				zap.Error(err))
		}
	default:
		// other services' events on the shared topic, not ours
	}
}
