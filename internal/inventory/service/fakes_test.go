package service_test

import (
	"context"
	"sort"
	"time"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/service"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// fakeStore is an in-memory implementation of the item and lot stores used
// by the service unit tests. It mimics the SQL semantics the repositories
// rely on: visibility filters on deleted_at, row counts from batched
// updates, and the compare-and-swap consume.
type fakeStore struct {
	items map[string]*domain.StockItem
	lots  map[string]*domain.Lot

	nameExistsErr error
	liveStockErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: make(map[string]*domain.StockItem),
		lots:  make(map[string]*domain.Lot),
	}
}

func (f *fakeStore) addItem(item *domain.StockItem) *domain.StockItem {
	f.items[item.ID] = item
	return item
}

func (f *fakeStore) addLot(lot *domain.Lot) *domain.Lot {
	f.lots[lot.ID] = lot
	return lot
}

// ItemStore

func (f *fakeStore) Create(ctx context.Context, item *domain.StockItem) error {
	if item.ID == "" {
		item.ID = "item-" + item.Name
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*domain.StockItem, error) {
	item, ok := f.items[id]
	if !ok || item.IsDeleted() {
		return nil, errors.NotFound("stock item")
	}
	copy := *item
	return &copy, nil
}

func (f *fakeStore) GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.StockItem, error) {
	var out []*domain.StockItem
	for _, id := range ids {
		item, ok := f.items[id]
		if !ok {
			continue
		}
		if item.IsDeleted() && !includeDeleted {
			continue
		}
		copy := *item
		out = append(out, &copy)
	}
	return out, nil
}

func (f *fakeStore) NameExists(ctx context.Context, kind domain.ItemKind, name, excludeID string) (bool, error) {
	if f.nameExistsErr != nil {
		return false, f.nameExistsErr
	}
	for _, item := range f.items {
		if item.Kind == kind && item.Name == name && item.ID != excludeID && !item.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) List(ctx context.Context, page, perPage int, kind domain.ItemKind, lowOnly bool) ([]*domain.StockItem, int64, error) {
	var out []*domain.StockItem
	for _, item := range f.items {
		if item.IsDeleted() {
			continue
		}
		if kind != "" && item.Kind != kind {
			continue
		}
		if lowOnly && item.CurrentStock >= item.MinimumStock {
			continue
		}
		copy := *item
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (f *fakeStore) Update(ctx context.Context, item *domain.StockItem) error {
	existing, ok := f.items[item.ID]
	if !ok || existing.IsDeleted() {
		return errors.NotFound("stock item")
	}
	copy := *item
	f.items[item.ID] = &copy
	return nil
}

func (f *fakeStore) LiveStock(ctx context.Context, itemID string, now time.Time) (int, error) {
	if f.liveStockErr != nil {
		return 0, f.liveStockErr
	}
	total := 0
	for _, lot := range f.lots {
		if lot.ItemID == itemID && !lot.IsDeleted() && !lot.IsExpired(now) {
			total += lot.Quantity
		}
	}
	return total, nil
}

func (f *fakeStore) SetCurrentStock(ctx context.Context, itemID string, stock int) error {
	item, ok := f.items[itemID]
	if !ok {
		return errors.NotFound("stock item")
	}
	item.CurrentStock = stock
	return nil
}

func (f *fakeStore) ActiveLotCount(ctx context.Context, itemID string, now time.Time) (int, error) {
	count := 0
	for _, lot := range f.lots {
		if lot.ItemID == itemID && lot.IsActive(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error) {
	var affected int64
	for _, id := range ids {
		item, ok := f.items[id]
		if !ok || item.IsDeleted() {
			continue
		}
		item.Lifecycle = domain.Deleted(at, by)
		affected++
	}
	return affected, nil
}

func (f *fakeStore) RestoreMany(ctx context.Context, ids []string) (int64, error) {
	var affected int64
	for _, id := range ids {
		item, ok := f.items[id]
		if !ok || !item.IsDeleted() {
			continue
		}
		item.Lifecycle = domain.Lifecycle{}
		affected++
	}
	return affected, nil
}

func (f *fakeStore) PermanentDeleteMany(ctx context.Context, ids []string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if _, ok := f.items[id]; !ok {
			continue
		}
		for lotID, lot := range f.lots {
			if lot.ItemID == id {
				delete(f.lots, lotID)
			}
		}
		delete(f.items, id)
		affected++
	}
	return affected, nil
}

// fakeLots adapts the same store to the lot interface. Separate type so a
// test can hand the services distinct values for the two dependencies.
type fakeLots struct {
	store *fakeStore

	consumeErr error
	// runs at the start of SoftDeleteMany, standing in for a concurrent
	// writer landing between the guard pass and the batched update
	beforeSoftDelete func()
}

func (f *fakeLots) Create(ctx context.Context, lot *domain.Lot) error {
	if lot.ID == "" {
		lot.ID = "lot-" + lot.LotNumber
	}
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = lot.CreatedAt
	f.store.lots[lot.ID] = lot
	return nil
}

func (f *fakeLots) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	lot, ok := f.store.lots[id]
	if !ok || lot.IsDeleted() {
		return nil, errors.NotFound("lot")
	}
	copy := *lot
	return &copy, nil
}

func (f *fakeLots) GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.Lot, error) {
	var out []*domain.Lot
	for _, id := range ids {
		lot, ok := f.store.lots[id]
		if !ok {
			continue
		}
		if lot.IsDeleted() && !includeDeleted {
			continue
		}
		copy := *lot
		out = append(out, &copy)
	}
	return out, nil
}

func (f *fakeLots) ListByItem(ctx context.Context, itemID string, includeDeleted bool) ([]*domain.Lot, error) {
	var out []*domain.Lot
	for _, lot := range f.store.lots {
		if lot.ItemID != itemID {
			continue
		}
		if lot.IsDeleted() && !includeDeleted {
			continue
		}
		copy := *lot
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLots) LotNumberExists(ctx context.Context, kind domain.ItemKind, lotNumber, excludeLotID string) (bool, error) {
	for _, lot := range f.store.lots {
		if lot.IsDeleted() || lot.ID == excludeLotID || lot.LotNumber != lotNumber {
			continue
		}
		owner, ok := f.store.items[lot.ItemID]
		if ok && owner.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLots) Update(ctx context.Context, lot *domain.Lot) error {
	existing, ok := f.store.lots[lot.ID]
	if !ok || existing.IsDeleted() {
		return errors.NotFound("lot")
	}
	copy := *lot
	f.store.lots[lot.ID] = &copy
	return nil
}

func (f *fakeLots) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	lot, ok := f.store.lots[id]
	if !ok || lot.IsDeleted() {
		return errors.NotFound("lot")
	}
	lot.Quantity = quantity
	return nil
}

func (f *fakeLots) Consume(ctx context.Context, id string, quantity int) (int64, error) {
	if f.consumeErr != nil {
		return 0, f.consumeErr
	}
	lot, ok := f.store.lots[id]
	if !ok || lot.IsDeleted() || lot.Quantity < quantity {
		return 0, nil
	}
	lot.Quantity -= quantity
	return 1, nil
}

func (f *fakeLots) ListExpiring(ctx context.Context, now time.Time, withinDays int) ([]*domain.Lot, error) {
	cutoff := now.AddDate(0, 0, withinDays)
	var out []*domain.Lot
	for _, lot := range f.store.lots {
		if lot.IsDeleted() || lot.Quantity == 0 {
			continue
		}
		if lot.ExpirationDate.After(now) && !lot.ExpirationDate.After(cutoff) {
			copy := *lot
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeLots) SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error) {
	if f.beforeSoftDelete != nil {
		f.beforeSoftDelete()
	}
	var affected int64
	for _, id := range ids {
		lot, ok := f.store.lots[id]
		if !ok || lot.IsDeleted() {
			continue
		}
		lot.Lifecycle = domain.Deleted(at, by)
		affected++
	}
	return affected, nil
}

func (f *fakeLots) RestoreMany(ctx context.Context, ids []string) (int64, error) {
	var affected int64
	for _, id := range ids {
		lot, ok := f.store.lots[id]
		if !ok || !lot.IsDeleted() {
			continue
		}
		lot.Lifecycle = domain.Lifecycle{}
		affected++
	}
	return affected, nil
}

func (f *fakeLots) PermanentDeleteMany(ctx context.Context, ids []string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if _, ok := f.store.lots[id]; !ok {
			continue
		}
		delete(f.store.lots, id)
		affected++
	}
	return affected, nil
}

// fakeTx runs the function directly; the in-memory store has no
// transactions to manage.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakePublisher records published events for assertions.
type fakePublisher struct {
	stockAdjusted []messaging.StockAdjustedEvent
	stockLow      []messaging.StockLowEvent
	lotExpiring   []messaging.LotExpiringEvent
}

func (f *fakePublisher) PublishStockAdjusted(ctx context.Context, data messaging.StockAdjustedEvent) {
	f.stockAdjusted = append(f.stockAdjusted, data)
}

func (f *fakePublisher) PublishStockLow(ctx context.Context, data messaging.StockLowEvent) {
	f.stockLow = append(f.stockLow, data)
}

func (f *fakePublisher) PublishLotExpiring(ctx context.Context, data messaging.LotExpiringEvent) {
	f.lotExpiring = append(f.lotExpiring, data)
}

// fakeRecalc counts recomputations per item.
type fakeRecalc struct {
	inner   service.Recalculator
	perItem map[string]int
	err     error
}

func newFakeRecalc(inner service.Recalculator) *fakeRecalc {
	return &fakeRecalc{inner: inner, perItem: make(map[string]int)}
}

func (f *fakeRecalc) Recalculate(ctx context.Context, itemID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.perItem[itemID]++
	if f.inner != nil {
		return f.inner.Recalculate(ctx, itemID)
	}
	return 0, nil
}
