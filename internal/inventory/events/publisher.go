package events

import (
	"context"

	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "schoolhealth-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *InventoryEventPublisher) PublishStockAdjusted(ctx context.Context, data messaging.StockAdjustedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", data.ItemID).Msg("failed to publish stock adjusted event")
	}
}

// PublishStockLow publishes a low stock event
func (p *InventoryEventPublisher) PublishStockLow(ctx context.Context, data messaging.StockLowEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockLow, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", data.ItemID).Msg("failed to publish low stock event")
	}
}

// PublishLotExpiring publishes a lot expiring event
func (p *InventoryEventPublisher) PublishLotExpiring(ctx context.Context, data messaging.LotExpiringEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventLotExpiring, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", data.LotID).Msg("failed to publish lot expiring event")
	}
}
