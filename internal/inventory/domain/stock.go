// Package domain holds the inventory entities and the pure stock rules
// (usability, FEFO selection, stock derivation) shared by the service and
// repository layers.
package domain

import (
	"time"
)

// ItemKind distinguishes medications from general medical supplies.
// Lot handling is identical for both; the kind only scopes lot-number
// uniqueness and reporting.
type ItemKind string

const (
	KindMedication ItemKind = "medication"
	KindSupply     ItemKind = "supply"
)

// Valid reports whether the kind is one of the known values.
func (k ItemKind) Valid() bool {
	return k == KindMedication || k == KindSupply
}

// Lifecycle models reversible logical deletion as one value instead of
// independent nullable columns that can drift apart.
type Lifecycle struct {
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy *string    `db:"deleted_by" json:"deleted_by,omitempty"`
}

// IsDeleted reports whether the entity is soft-deleted.
func (l Lifecycle) IsDeleted() bool {
	return l.DeletedAt != nil
}

// Deleted builds a soft-deleted lifecycle stamped with who and when.
func Deleted(at time.Time, by string) Lifecycle {
	return Lifecycle{DeletedAt: &at, DeletedBy: &by}
}

// StockItem is a named consumable (medication or medical supply) that owns
// zero or more lots. CurrentStock is derived from the live lot set; the
// persisted column is a read model refreshed after every lot mutation.
type StockItem struct {
	ID           string   `db:"id" json:"id"`
	Kind         ItemKind `db:"kind" json:"kind"`
	Name         string   `db:"name" json:"name"`
	Description  *string  `db:"description" json:"description,omitempty"`
	Unit         string   `db:"unit" json:"unit"`
	MinimumStock int      `db:"minimum_stock" json:"minimum_stock"`
	CurrentStock int      `db:"current_stock" json:"current_stock"`
	IsActive     bool     `db:"is_active" json:"is_active"`
	Lifecycle
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Lot is a received batch of a stock item with its own quantity and
// expiration date.
type Lot struct {
	ID              string    `db:"id" json:"id"`
	ItemID          string    `db:"item_id" json:"item_id"`
	LotNumber       string    `db:"lot_number" json:"lot_number"`
	ManufactureDate time.Time `db:"manufacture_date" json:"manufacture_date"`
	ExpirationDate  time.Time `db:"expiration_date" json:"expiration_date"`
	Quantity        int       `db:"quantity" json:"quantity"`
	Lifecycle
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the lot's expiration date has passed at now.
func (l *Lot) IsExpired(now time.Time) bool {
	return !l.ExpirationDate.After(now)
}

// IsActive reports whether the lot still holds usable stock: not expired,
// not soft-deleted, quantity remaining. Active lots block permanent deletion.
func (l *Lot) IsActive(now time.Time) bool {
	return l.Quantity > 0 && !l.IsExpired(now) && !l.IsDeleted()
}
