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

// ItemRepository handles stock item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new stock item
func (r *ItemRepository) Create(ctx context.Context, item *domain.StockItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_items (
			id, kind, name, description, unit, minimum_stock, current_stock, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		item.ID, item.Kind, item.Name, item.Description, item.Unit,
		item.MinimumStock, item.CurrentStock, item.IsActive,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a stock item by ID, excluding soft-deleted rows
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.StockItem, error) {
	var item domain.StockItem
	query := `SELECT * FROM stock_items WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock item")
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDs fetches all items matching the given ids in one query.
// includeDeleted controls whether soft-deleted rows are visible; restore and
// permanent delete need to look through them, soft delete does not.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]*domain.StockItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT * FROM stock_items WHERE id = ANY($1)`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	var items []*domain.StockItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByName gets an item by its unique name within a kind
func (r *ItemRepository) GetByName(ctx context.Context, kind domain.ItemKind, name string) (*domain.StockItem, error) {
	var item domain.StockItem
	query := `SELECT * FROM stock_items WHERE kind = $1 AND name = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &item, query, kind, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock item")
		}
		return nil, err
	}
	return &item, nil
}

// NameExists reports whether another item of the same kind already uses the
// name. The exclude id is only compared when set: id is a uuid column, so an
// empty string must never reach the placeholder.
func (r *ItemRepository) NameExists(ctx context.Context, kind domain.ItemKind, name, excludeID string) (bool, error) {
	var exists bool

	if excludeID == "" {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM stock_items
				WHERE kind = $1 AND name = $2 AND deleted_at IS NULL
			)
		`
		if err := r.db.GetContext(ctx, &exists, query, kind, name); err != nil {
			return false, err
		}
		return exists, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_items
			WHERE kind = $1 AND name = $2 AND id <> $3 AND deleted_at IS NULL
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, kind, name, excludeID); err != nil {
		return false, err
	}
	return exists, nil
}

// List lists stock items with pagination, optionally filtered by kind and
// restricted to items whose cached stock sits below their minimum
func (r *ItemRepository) List(ctx context.Context, page, perPage int, kind domain.ItemKind, lowOnly bool) ([]*domain.StockItem, int64, error) {
	filter := ` WHERE deleted_at IS NULL`
	if lowOnly {
		filter += ` AND current_stock < minimum_stock`
	}

	countQuery := `SELECT COUNT(*) FROM stock_items` + filter
	args := []interface{}{}

	if kind != "" {
		countQuery += ` AND kind = $1`
		args = append(args, kind)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `SELECT * FROM stock_items` + filter
	if kind != "" {
		query += ` AND kind = $1 ORDER BY name LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY name LIMIT $1 OFFSET $2`
	}
	args = append(args, perPage, offset)

	var items []*domain.StockItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update updates a stock item
func (r *ItemRepository) Update(ctx context.Context, item *domain.StockItem) error {
	query := `
		UPDATE stock_items SET
			name = $2, description = $3, unit = $4, minimum_stock = $5,
			is_active = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Unit, item.MinimumStock, item.IsActive,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("stock item")
	}

	return nil
}

// LiveStock derives the item's current stock from its non-deleted,
// non-expired lots. This is the authoritative stock number.
func (r *ItemRepository) LiveStock(ctx context.Context, itemID string, now time.Time) (int, error) {
	var total sql.NullInt64
	query := `
		SELECT SUM(quantity) FROM lots
		WHERE item_id = $1 AND deleted_at IS NULL AND expiration_date > $2
	`
	if err := r.db.GetContext(ctx, &total, query, itemID, now); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

// SetCurrentStock writes the recomputed stock onto the item's read-model column
func (r *ItemRepository) SetCurrentStock(ctx context.Context, itemID string, stock int) error {
	query := `UPDATE stock_items SET current_stock = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, itemID, stock)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("stock item")
	}

	return nil
}

// ActiveLotCount counts lots that still block permanent deletion of the item
func (r *ItemRepository) ActiveLotCount(ctx context.Context, itemID string, now time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM lots
		WHERE item_id = $1 AND deleted_at IS NULL AND expiration_date > $2 AND quantity > 0
	`
	if err := r.db.GetContext(ctx, &count, query, itemID, now); err != nil {
		return 0, err
	}
	return count, nil
}

// SoftDeleteMany soft-deletes the given items in one batched update and
// returns the number of rows actually affected
func (r *ItemRepository) SoftDeleteMany(ctx context.Context, ids []string, at time.Time, by string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE stock_items SET deleted_at = $2, deleted_by = $3, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids), at, by)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RestoreMany clears the soft-delete mark on the given items
func (r *ItemRepository) RestoreMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE stock_items SET deleted_at = NULL, deleted_by = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PermanentDeleteMany irreversibly removes the given items and their lots
func (r *ItemRepository) PermanentDeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	// Lots go first: the FK has no cascade so orphaned lots would block the delete
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lots WHERE item_id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
