package service

import (
	"context"
	"time"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/actor"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
)

// BatchService applies a lifecycle operation to many lots or items in one
// transaction. Individual ids can fail validation without sinking the rest
// of the batch; a system error aborts the whole transaction and surfaces as
// a single failure.
type BatchService struct {
	db     TxRunner
	lots   LotStore
	items  ItemStore
	recalc Recalculator
	logger *logger.Logger
	now    func() time.Time
}

// NewBatchService creates a new batch service
func NewBatchService(db TxRunner, lots LotStore, items ItemStore, recalc Recalculator, log *logger.Logger) *BatchService {
	return &BatchService{
		db:     db,
		lots:   lots,
		items:  items,
		recalc: recalc,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Used in tests.
func (s *BatchService) WithClock(now func() time.Time) *BatchService {
	s.now = now
	return s
}

// lotGuard decides per lot whether the operation may touch it. A non-empty
// code marks the lot as failed with that code and message.
type lotGuard func(lot *domain.Lot) (code, message string)

// runLotBatch is the shared skeleton of the lot lifecycle operations: fetch
// all requested lots in one query, partition into found and not-found, apply
// the guard, run the batched mutation, then recompute stock for every
// distinct owner touched.
func (s *BatchService) runLotBatch(
	ctx context.Context,
	ids []string,
	includeDeleted bool,
	guard lotGuard,
	mutate func(ctx context.Context, ids []string) (int64, error),
) (*domain.BatchOperationResult, error) {
	result := domain.NewBatchOperationResult(len(ids))
	owners := make(map[string]struct{})

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		lots, err := s.lots.GetByIDs(ctx, ids, includeDeleted)
		if err != nil {
			return err
		}

		found := make(map[string]*domain.Lot, len(lots))
		for _, lot := range lots {
			found[lot.ID] = lot
		}

		var eligible []string
		for _, id := range ids {
			lot, ok := found[id]
			if !ok {
				result.AddError(id, "NOT_FOUND", "lot not found")
				continue
			}
			if code, msg := guard(lot); code != "" {
				result.AddError(id, code, msg)
				continue
			}
			eligible = append(eligible, id)
			owners[lot.ItemID] = struct{}{}
		}

		if len(eligible) == 0 {
			return nil
		}

		affected, err := mutate(ctx, eligible)
		if err != nil {
			return err
		}
		if affected != int64(len(eligible)) {
			// The batched update landed on fewer rows than the guard pass
			// admitted: a concurrent writer changed a lot between the two.
			// Abort so the caller can retry against fresh state.
			s.logger.Warn().
				Int("eligible", len(eligible)).
				Int64("affected", affected).
				Msg("batched lot update affected fewer rows than expected")
			return errors.Conflict("lots changed concurrently, retry the operation")
		}

		for _, id := range eligible {
			result.AddSuccess(id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stock recomputation runs after the batch transaction committed, once
	// per distinct owner.
	for itemID := range owners {
		if _, err := s.recalc.Recalculate(ctx, itemID); err != nil {
			s.logger.Error().Err(err).Str("item_id", itemID).Msg("stock recomputation failed after batch operation")
		}
	}

	return result, nil
}

// SoftDeleteLots soft-deletes the given lots. Already-deleted lots are not
// visible to this operation and come back as not-found entries.
func (s *BatchService) SoftDeleteLots(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	at, by := s.now(), actor.ID(ctx)
	return s.runLotBatch(ctx, ids, false,
		func(lot *domain.Lot) (string, string) { return "", "" },
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.lots.SoftDeleteMany(ctx, eligible, at, by)
		},
	)
}

// RestoreLots restores soft-deleted lots.
func (s *BatchService) RestoreLots(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	return s.runLotBatch(ctx, ids, true,
		func(lot *domain.Lot) (string, string) {
			if !lot.IsDeleted() {
				return "CONFLICT", "lot is not deleted"
			}
			return "", ""
		},
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.lots.RestoreMany(ctx, eligible)
		},
	)
}

// PermanentDeleteLots irreversibly removes lots. A lot that still holds
// usable stock cannot be permanently deleted.
func (s *BatchService) PermanentDeleteLots(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	now := s.now()
	return s.runLotBatch(ctx, ids, true,
		func(lot *domain.Lot) (string, string) {
			if lot.IsActive(now) {
				return "CONFLICT", "lot still holds usable stock"
			}
			return "", ""
		},
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.lots.PermanentDeleteMany(ctx, eligible)
		},
	)
}

// itemGuard mirrors lotGuard for stock items.
type itemGuard func(ctx context.Context, item *domain.StockItem) (code, message string)

func (s *BatchService) runItemBatch(
	ctx context.Context,
	ids []string,
	includeDeleted bool,
	guard itemGuard,
	mutate func(ctx context.Context, ids []string) (int64, error),
) (*domain.BatchOperationResult, error) {
	result := domain.NewBatchOperationResult(len(ids))

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		items, err := s.items.GetByIDs(ctx, ids, includeDeleted)
		if err != nil {
			return err
		}

		found := make(map[string]*domain.StockItem, len(items))
		for _, item := range items {
			found[item.ID] = item
		}

		var eligible []string
		for _, id := range ids {
			item, ok := found[id]
			if !ok {
				result.AddError(id, "NOT_FOUND", "stock item not found")
				continue
			}
			if code, msg := guard(ctx, item); code != "" {
				result.AddError(id, code, msg)
				continue
			}
			eligible = append(eligible, id)
		}

		if len(eligible) == 0 {
			return nil
		}

		affected, err := mutate(ctx, eligible)
		if err != nil {
			return err
		}
		if affected != int64(len(eligible)) {
			s.logger.Warn().
				Int("eligible", len(eligible)).
				Int64("affected", affected).
				Msg("batched item update affected fewer rows than expected")
			return errors.Conflict("stock items changed concurrently, retry the operation")
		}

		for _, id := range eligible {
			result.AddSuccess(id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SoftDeleteItems soft-deletes the given stock items.
func (s *BatchService) SoftDeleteItems(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	at, by := s.now(), actor.ID(ctx)
	return s.runItemBatch(ctx, ids, false,
		func(ctx context.Context, item *domain.StockItem) (string, string) { return "", "" },
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.items.SoftDeleteMany(ctx, eligible, at, by)
		},
	)
}

// RestoreItems restores soft-deleted stock items and refreshes their
// read-model stock.
func (s *BatchService) RestoreItems(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	result, err := s.runItemBatch(ctx, ids, true,
		func(ctx context.Context, item *domain.StockItem) (string, string) {
			if !item.IsDeleted() {
				return "CONFLICT", "stock item is not deleted"
			}
			return "", ""
		},
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.items.RestoreMany(ctx, eligible)
		},
	)
	if err != nil {
		return nil, err
	}

	for _, id := range result.SuccessIDs {
		if _, err := s.recalc.Recalculate(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("item_id", id).Msg("stock recomputation failed after restore")
		}
	}

	return result, nil
}

// PermanentDeleteItems irreversibly removes stock items and their lots.
// Items with active lots are protected; the same rule applies to both kinds.
func (s *BatchService) PermanentDeleteItems(ctx context.Context, ids []string) (*domain.BatchOperationResult, error) {
	now := s.now()
	return s.runItemBatch(ctx, ids, true,
		func(ctx context.Context, item *domain.StockItem) (string, string) {
			count, err := s.items.ActiveLotCount(ctx, item.ID, now)
			if err != nil {
				return "SYSTEM_ERROR", err.Error()
			}
			if count > 0 {
				return "CONFLICT", "stock item still has active lots"
			}
			return "", ""
		},
		func(ctx context.Context, eligible []string) (int64, error) {
			return s.items.PermanentDeleteMany(ctx, eligible)
		},
	)
}
