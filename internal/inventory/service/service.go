// Package service implements the inventory business rules on top of the
// repository layer: lot receipt and consumption, stock recomputation, and
// batched lifecycle operations.
package service

import (
	"context"
	"time"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// ItemStore is the slice of the item repository the services depend on.
type ItemStore interface {
	Create(ctx context.Context, item *domain.StockItem) error
	GetByID(ctx context.Context, id string) (*domain.StockItem, error)
	GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.StockItem, error)
	NameExists(ctx context.Context, kind domain.ItemKind, name, excludeID string) (bool, error)
	List(ctx context.Context, page, perPage int, kind domain.ItemKind, lowOnly bool) ([]*domain.StockItem, int64, error)
	Update(ctx context.Context, item *domain.StockItem) error
	LiveStock(ctx context.Context, itemID string, now time.Time) (int, error)
	SetCurrentStock(ctx context.Context, itemID string, stock int) error
	ActiveLotCount(ctx context.Context, itemID string, now time.Time) (int, error)
	SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error)
	RestoreMany(ctx context.Context, ids []string) (int64, error)
	PermanentDeleteMany(ctx context.Context, ids []string) (int64, error)
}

// LotStore is the slice of the lot repository the services depend on.
type LotStore interface {
	Create(ctx context.Context, lot *domain.Lot) error
	GetByID(ctx context.Context, id string) (*domain.Lot, error)
	GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.Lot, error)
	ListByItem(ctx context.Context, itemID string, includeDeleted bool) ([]*domain.Lot, error)
	LotNumberExists(ctx context.Context, kind domain.ItemKind, lotNumber, excludeLotID string) (bool, error)
	Update(ctx context.Context, lot *domain.Lot) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Consume(ctx context.Context, id string, quantity int) (int64, error)
	ListExpiring(ctx context.Context, now time.Time, withinDays int) ([]*domain.Lot, error)
	SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error)
	RestoreMany(ctx context.Context, ids []string) (int64, error)
	PermanentDeleteMany(ctx context.Context, ids []string) (int64, error)
}

// TxRunner runs a function inside a single database transaction carried
// through the context. Implemented by database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// EventPublisher publishes inventory events. Implemented by
// events.InventoryEventPublisher; publishing is best-effort and never fails
// the operation.
type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, data messaging.StockAdjustedEvent)
	PublishStockLow(ctx context.Context, data messaging.StockLowEvent)
	PublishLotExpiring(ctx context.Context, data messaging.LotExpiringEvent)
}

// Recalculator recomputes an item's derived stock after a lot mutation.
// Implemented by StockService.
type Recalculator interface {
	Recalculate(ctx context.Context, itemID string) (int, error)
}
