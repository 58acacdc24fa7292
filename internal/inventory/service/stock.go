package service

import (
	"context"
	"time"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/actor"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// StockService handles stock item operations and stock recomputation.
type StockService struct {
	items     ItemStore
	lots      LotStore
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewStockService creates a new stock service
func NewStockService(items ItemStore, lots LotStore, publisher EventPublisher, log *logger.Logger) *StockService {
	return &StockService{
		items:     items,
		lots:      lots,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Used in tests.
func (s *StockService) WithClock(now func() time.Time) *StockService {
	s.now = now
	return s
}

// CreateItemInput carries the fields for a new stock item
type CreateItemInput struct {
	Kind         domain.ItemKind `json:"kind" validate:"required,oneof=medication supply"`
	Name         string          `json:"name" validate:"required,max=200"`
	Description  *string         `json:"description,omitempty"`
	Unit         string          `json:"unit" validate:"required,max=50"`
	MinimumStock int             `json:"minimum_stock" validate:"gte=0"`
}

// UpdateItemInput carries the editable fields of a stock item
type UpdateItemInput struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Description  *string `json:"description,omitempty"`
	Unit         string  `json:"unit" validate:"required,max=50"`
	MinimumStock int     `json:"minimum_stock" validate:"gte=0"`
	IsActive     bool    `json:"is_active"`
}

// ItemDetail is a stock item enriched with its lots and derived stock
type ItemDetail struct {
	*domain.StockItem
	Lots          []*domain.Lot `json:"lots"`
	LiveStock     int           `json:"live_stock"`
	LowStock      bool          `json:"low_stock"`
	NearestExpiry *time.Time    `json:"nearest_expiry,omitempty"`
}

// CreateItem creates a new stock item
func (s *StockService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.StockItem, error) {
	details := make(map[string]string)
	if !input.Kind.Valid() {
		details["kind"] = "must be one of: medication, supply"
	}
	if input.Name == "" {
		details["name"] = "must not be empty"
	}
	if input.MinimumStock < 0 {
		details["minimum_stock"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	taken, err := s.items.NameExists(ctx, input.Kind, input.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.Validation(map[string]string{
			"name": "an item with this name already exists",
		})
	}

	item := &domain.StockItem{
		Kind:         input.Kind,
		Name:         input.Name,
		Description:  input.Description,
		Unit:         input.Unit,
		MinimumStock: input.MinimumStock,
		IsActive:     true,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// GetItem gets a stock item with its lots and live derived stock
func (s *StockService) GetItem(ctx context.Context, id string) (*ItemDetail, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lots, err := s.lots.ListByItem(ctx, id, false)
	if err != nil {
		return nil, err
	}

	return s.enrichItem(item, lots), nil
}

// ListItems lists stock items. The current_stock column on each row is the
// recomputed read model, refreshed after every lot mutation; lowOnly filters
// to items sitting below their minimum.
func (s *StockService) ListItems(ctx context.Context, page, perPage int, kind domain.ItemKind, lowOnly bool) ([]*domain.StockItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.items.List(ctx, page, perPage, kind, lowOnly)
}

// UpdateItem updates a stock item
func (s *StockService) UpdateItem(ctx context.Context, id string, input UpdateItemInput) (*domain.StockItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name == "" {
		return nil, errors.Validation(map[string]string{"name": "must not be empty"})
	}
	if input.MinimumStock < 0 {
		return nil, errors.Validation(map[string]string{"minimum_stock": "must not be negative"})
	}

	if input.Name != item.Name {
		taken, err := s.items.NameExists(ctx, item.Kind, input.Name, item.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errors.Validation(map[string]string{
				"name": "an item with this name already exists",
			})
		}
	}

	item.Name = input.Name
	item.Description = input.Description
	item.Unit = input.Unit
	item.MinimumStock = input.MinimumStock
	item.IsActive = input.IsActive

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// CurrentStock derives the item's stock from its live lot set.
func (s *StockService) CurrentStock(ctx context.Context, itemID string) (int, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return 0, err
	}
	return s.items.LiveStock(ctx, itemID, s.now())
}

// Recalculate recomputes the item's derived stock and writes it onto the
// read-model column. Idempotent; must run after every lot mutation that can
// change the item's non-expired, non-deleted lot sum. Emits a stock adjusted
// event, plus a low stock event when the result is below the minimum.
func (s *StockService) Recalculate(ctx context.Context, itemID string) (int, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}

	stock, err := s.items.LiveStock(ctx, itemID, s.now())
	if err != nil {
		return 0, err
	}

	if err := s.items.SetCurrentStock(ctx, itemID, stock); err != nil {
		return 0, err
	}

	s.publisher.PublishStockAdjusted(ctx, messaging.StockAdjustedEvent{
		ItemID:       item.ID,
		ItemKind:     string(item.Kind),
		CurrentStock: stock,
		AdjustedBy:   actor.ID(ctx),
	})

	if domain.IsLowStock(stock, item.MinimumStock) {
		s.logger.Warn().
			Str("item_id", item.ID).
			Str("item_name", item.Name).
			Int("current_stock", stock).
			Int("minimum_stock", item.MinimumStock).
			Msg("stock below minimum")

		s.publisher.PublishStockLow(ctx, messaging.StockLowEvent{
			ItemID:       item.ID,
			ItemName:     item.Name,
			ItemKind:     string(item.Kind),
			CurrentStock: stock,
			MinimumStock: item.MinimumStock,
		})
	}

	return stock, nil
}

func (s *StockService) enrichItem(item *domain.StockItem, lots []*domain.Lot) *ItemDetail {
	now := s.now()

	detail := &ItemDetail{
		StockItem: item,
		Lots:      lots,
		LiveStock: domain.CurrentStock(lots, now),
	}
	detail.LowStock = domain.IsLowStock(detail.LiveStock, item.MinimumStock)

	if best := domain.BestLotToUse(lots, now); best != nil {
		detail.NearestExpiry = &best.ExpirationDate
	}

	return detail
}
