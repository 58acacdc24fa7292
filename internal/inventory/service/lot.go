package service

import (
	"context"
	"time"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
)

// LotService handles lot receipt and mutation. Every mutation that can
// change an item's stock recomputes the owner's derived stock before the
// enclosing transaction commits.
type LotService struct {
	db     TxRunner
	lots   LotStore
	items  ItemStore
	recalc Recalculator
	logger *logger.Logger
	now    func() time.Time
}

// NewLotService creates a new lot service
func NewLotService(db TxRunner, lots LotStore, items ItemStore, recalc Recalculator, log *logger.Logger) *LotService {
	return &LotService{
		db:     db,
		lots:   lots,
		items:  items,
		recalc: recalc,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Used in tests.
func (s *LotService) WithClock(now func() time.Time) *LotService {
	s.now = now
	return s
}

// CreateLotInput carries the fields for receiving a new lot
type CreateLotInput struct {
	ItemID          string    `json:"item_id" validate:"required,uuid"`
	LotNumber       string    `json:"lot_number" validate:"required,max=100"`
	ManufactureDate time.Time `json:"manufacture_date" validate:"required"`
	ExpirationDate  time.Time `json:"expiration_date" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateLotInput carries the editable fields of a lot
type UpdateLotInput struct {
	LotNumber       string    `json:"lot_number" validate:"required,max=100"`
	ManufactureDate time.Time `json:"manufacture_date" validate:"required"`
	ExpirationDate  time.Time `json:"expiration_date" validate:"required"`
	Quantity        int       `json:"quantity" validate:"gte=0"`
}

// CreateLot receives a new lot for an item and recomputes the item's stock.
func (s *LotService) CreateLot(ctx context.Context, input CreateLotInput) (*domain.Lot, error) {
	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	details := make(map[string]string)
	if input.LotNumber == "" {
		details["lot_number"] = "must not be empty"
	}
	if input.ManufactureDate.After(now) {
		details["manufacture_date"] = "must not be in the future"
	}
	if !input.ExpirationDate.After(now) {
		details["expiration_date"] = "must be in the future"
	}
	if !input.ManufactureDate.Before(input.ExpirationDate) {
		details["expiration_date"] = "must be after the manufacture date"
	}
	if input.Quantity <= 0 {
		details["quantity"] = "must be greater than zero"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	taken, err := s.lots.LotNumberExists(ctx, item.Kind, input.LotNumber, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.Validation(map[string]string{
			"lot_number": "a lot with this lot number already exists",
		})
	}

	lot := &domain.Lot{
		ItemID:          input.ItemID,
		LotNumber:       input.LotNumber,
		ManufactureDate: input.ManufactureDate,
		ExpirationDate:  input.ExpirationDate,
		Quantity:        input.Quantity,
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lots.Create(ctx, lot); err != nil {
			return err
		}
		_, err := s.recalc.Recalculate(ctx, lot.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return lot, nil
}

// GetLot gets a lot by ID
func (s *LotService) GetLot(ctx context.Context, id string) (*domain.Lot, error) {
	return s.lots.GetByID(ctx, id)
}

// ListLotsByItem lists an item's lots in creation order
func (s *LotService) ListLotsByItem(ctx context.Context, itemID string, includeDeleted bool) ([]*domain.Lot, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.lots.ListByItem(ctx, itemID, includeDeleted)
}

// BestLot picks the FEFO lot to dispense from for an item. Returns a
// conflict error when no usable lot exists.
func (s *LotService) BestLot(ctx context.Context, itemID string) (*domain.Lot, error) {
	lots, err := s.ListLotsByItem(ctx, itemID, false)
	if err != nil {
		return nil, err
	}

	best := domain.BestLotToUse(lots, s.now())
	if best == nil {
		return nil, errors.Conflict("no usable lot available for this item")
	}
	return best, nil
}

// UpdateLot updates a lot's fields and recomputes the owner's stock.
func (s *LotService) UpdateLot(ctx context.Context, id string, input UpdateLotInput) (*domain.Lot, error) {
	lot, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, lot.ItemID)
	if err != nil {
		return nil, err
	}

	details := make(map[string]string)
	if input.LotNumber == "" {
		details["lot_number"] = "must not be empty"
	}
	if !input.ManufactureDate.Before(input.ExpirationDate) {
		details["expiration_date"] = "must be after the manufacture date"
	}
	if input.Quantity < 0 {
		details["quantity"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	if input.LotNumber != lot.LotNumber {
		taken, err := s.lots.LotNumberExists(ctx, item.Kind, input.LotNumber, lot.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errors.Validation(map[string]string{
				"lot_number": "a lot with this lot number already exists",
			})
		}
	}

	lot.LotNumber = input.LotNumber
	lot.ManufactureDate = input.ManufactureDate
	lot.ExpirationDate = input.ExpirationDate
	lot.Quantity = input.Quantity

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lots.Update(ctx, lot); err != nil {
			return err
		}
		_, err := s.recalc.Recalculate(ctx, lot.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return lot, nil
}

// Consume decrements a lot's quantity. The repository applies the decrement
// with a compare-and-swap guard so a concurrent consumer cannot push the
// quantity negative; losing the race surfaces as InsufficientQuantity.
func (s *LotService) Consume(ctx context.Context, lotID string, quantity int) (*domain.Lot, error) {
	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.Quantity < quantity {
		return nil, errors.InsufficientQuantity(quantity, lot.Quantity)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		affected, err := s.lots.Consume(ctx, lotID, quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Lost a race with another consumer; re-read for the message
			fresh, ferr := s.lots.GetByID(ctx, lotID)
			if ferr != nil {
				return ferr
			}
			return errors.InsufficientQuantity(quantity, fresh.Quantity)
		}

		_, err = s.recalc.Recalculate(ctx, lot.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	lot.Quantity -= quantity
	return lot, nil
}

// UpdateQuantity overwrites a lot's quantity (not a delta) and recomputes
// the owner's stock.
func (s *LotService) UpdateQuantity(ctx context.Context, lotID string, quantity int) (*domain.Lot, error) {
	if quantity < 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lots.UpdateQuantity(ctx, lotID, quantity); err != nil {
			return err
		}
		_, err := s.recalc.Recalculate(ctx, lot.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	lot.Quantity = quantity
	return lot, nil
}
