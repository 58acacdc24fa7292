package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/database"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
)

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Create creates a new lot
func (r *LotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lots (
			id, item_id, lot_number, manufacture_date, expiration_date, quantity
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		lot.ID, lot.ItemID, lot.LotNumber, lot.ManufactureDate,
		lot.ExpirationDate, lot.Quantity,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a lot by ID, excluding soft-deleted rows
func (r *LotRepository) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	var lot domain.Lot
	query := `SELECT * FROM lots WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// GetByIDs fetches all lots matching the given ids in one query.
// includeDeleted controls soft-deleted visibility: restore and permanent
// delete look through soft-deleted rows, soft delete does not.
func (r *LotRepository) GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.Lot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT * FROM lots WHERE id = ANY($1)`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	var lots []*domain.Lot
	if err := r.db.SelectContext(ctx, &lots, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return lots, nil
}

// ListByItem lists an item's lots in creation order, which makes FEFO
// tie-breaking deterministic for callers feeding them to the selector
func (r *LotRepository) ListByItem(ctx context.Context, itemID string, includeDeleted bool) ([]*domain.Lot, error) {
	query := `SELECT * FROM lots WHERE item_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	var lots []*domain.Lot
	if err := r.db.SelectContext(ctx, &lots, query, itemID); err != nil {
		return nil, err
	}
	return lots, nil
}

// LotNumberExists reports whether another lot of the same item kind already
// uses the lot number. Uniqueness is scoped per kind, so the check joins
// through the owning items. The exclude id is only compared when set: id is
// a uuid column, so an empty string must never reach the placeholder.
func (r *LotRepository) LotNumberExists(ctx context.Context, kind domain.ItemKind, lotNumber, excludeLotID string) (bool, error) {
	var exists bool

	if excludeLotID == "" {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM lots l
				JOIN stock_items i ON i.id = l.item_id
				WHERE i.kind = $1 AND l.lot_number = $2
			)
		`
		if err := r.db.GetContext(ctx, &exists, query, kind, lotNumber); err != nil {
			return false, err
		}
		return exists, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM lots l
			JOIN stock_items i ON i.id = l.item_id
			WHERE i.kind = $1 AND l.lot_number = $2 AND l.id <> $3
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, kind, lotNumber, excludeLotID); err != nil {
		return false, err
	}
	return exists, nil
}

// Update updates a lot's editable fields
func (r *LotRepository) Update(ctx context.Context, lot *domain.Lot) error {
	query := `
		UPDATE lots SET
			lot_number = $2, manufacture_date = $3, expiration_date = $4,
			quantity = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.LotNumber, lot.ManufactureDate, lot.ExpirationDate, lot.Quantity,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// UpdateQuantity overwrites a lot's quantity
func (r *LotRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	query := `UPDATE lots SET quantity = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// Consume decrements a lot's quantity with a compare-and-swap guard: the
// update only lands when enough quantity remains, so two concurrent consumers
// cannot drive the lot negative. Returns the rows affected; zero means the
// lot is missing, deleted, or short on stock, and the caller decides which.
func (r *LotRepository) Consume(ctx context.Context, id string, quantity int) (int64, error) {
	query := `
		UPDATE lots SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND quantity >= $2
	`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListExpiring lists non-deleted lots with remaining stock that expire within
// the given number of days from now
func (r *LotRepository) ListExpiring(ctx context.Context, now time.Time, withinDays int) ([]*domain.Lot, error) {
	var lots []*domain.Lot
	query := `
		SELECT * FROM lots
		WHERE deleted_at IS NULL AND quantity > 0
		AND expiration_date > $1
		AND expiration_date <= $1 + INTERVAL '1 day' * $2
		ORDER BY expiration_date
	`
	if err := r.db.SelectContext(ctx, &lots, query, now, withinDays); err != nil {
		return nil, err
	}
	return lots, nil
}

// SoftDeleteMany soft-deletes the given lots in one batched update and
// returns the number of rows actually affected
func (r *LotRepository) SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE lots SET deleted_at = $2, deleted_by = $3, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids), at, by)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RestoreMany clears the soft-delete mark on the given lots
func (r *LotRepository) RestoreMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE lots SET deleted_at = NULL, deleted_by = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PermanentDeleteMany irreversibly removes the given lots
func (r *LotRepository) PermanentDeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM lots WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
