package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/broker"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventInventoryLevelChanged = "InventoryLevelChanged"

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type InventoryListener struct {
	consumer  messageReader
	uc        inventory.UseCase
	logger    logger.ZapLogger
	readRetry time.Duration
}

func NewInventoryListener(consumer messageReader, uc inventory.UseCase, logger logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		consumer:  consumer,
		uc:        uc,
		logger:    logger,
		readRetry: time.Second,
	}
}

// InventoryLevelChanged is pushed when the POS reports a new count for one
// of its items.
type InventoryLevelChanged struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

// Start consumes until ctx is cancelled.
func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("Starting Inventory Kafka Listener")
	for {
		msg, err := l.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("Stopping Inventory Kafka Listener")
				return
			}
			l.logger.Error("Failed to read kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.readRetry):
			}
			continue
		}
		l.processMessage(ctx, msg.Value)
	}
}

func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	var env broker.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}
	if env.EventType != EventInventoryLevelChanged {
		return
	}

	event, err := broker.UnwrapPayload[InventoryLevelChanged](env.Payload)
	if err != nil || event.ItemID == "" {
		l.logger.Error("Malformed inventory event", zap.String("event_id", env.EventID), zap.Error(err))
		return
	}

	err = l.uc.ApplyExternalLevel(ctx, &dto.ExternalLevelInput{
		MerchantID:     env.MerchantID,
		ExternalItemID: event.ItemID,
		Quantity:       event.Quantity,
		EventID:        env.EventID,
	})
	if err != nil {
		// the next full sync repairs a missed count
		l.logger.Error("Failed to apply inventory event",
			zap.String("event_id", env.EventID),
			zap.String("item_id", event.ItemID),
			zap.Error(err),
		)
	}
}
