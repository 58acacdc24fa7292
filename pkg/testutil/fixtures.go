package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	incidentdomain "github.com/schoolmed/schoolmed-backend/internal/incident/domain"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// StockItem creates a stock item fixture with defaults
func (f *FixtureFactory) StockItem(opts ...func(*domain.StockItem)) *domain.StockItem {
	seq := f.nextSeq()

	item := &domain.StockItem{
		ID:           uuid.New().String(),
		Kind:         domain.KindSupply,
		Name:         fmt.Sprintf("Test Supply %d", seq),
		Unit:         "piece",
		MinimumStock: 10,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(item)
	}

	return item
}

// WithKind sets the item kind
func WithKind(kind domain.ItemKind) func(*domain.StockItem) {
	return func(i *domain.StockItem) {
		i.Kind = kind
	}
}

// WithItemName sets the item name
func WithItemName(name string) func(*domain.StockItem) {
	return func(i *domain.StockItem) {
		i.Name = name
	}
}

// WithMinimumStock sets the minimum stock threshold
func WithMinimumStock(min int) func(*domain.StockItem) {
	return func(i *domain.StockItem) {
		i.MinimumStock = min
	}
}

// Lot creates a lot fixture with defaults: received today, expiring in a year
func (f *FixtureFactory) Lot(itemID string, opts ...func(*domain.Lot)) *domain.Lot {
	seq := f.nextSeq()
	now := time.Now()

	lot := &domain.Lot{
		ID:              uuid.New().String(),
		ItemID:          itemID,
		LotNumber:       fmt.Sprintf("LOT-%04d", seq),
		ManufactureDate: now.AddDate(0, -1, 0),
		ExpirationDate:  now.AddDate(1, 0, 0),
		Quantity:        100,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, opt := range opts {
		opt(lot)
	}

	return lot
}

// WithQuantity sets the lot quantity
func WithQuantity(qty int) func(*domain.Lot) {
	return func(l *domain.Lot) {
		l.Quantity = qty
	}
}

// WithExpiration sets the lot expiration date
func WithExpiration(t time.Time) func(*domain.Lot) {
	return func(l *domain.Lot) {
		l.ExpirationDate = t
	}
}

// WithLotNumber sets the lot number
func WithLotNumber(number string) func(*domain.Lot) {
	return func(l *domain.Lot) {
		l.LotNumber = number
	}
}

// SoftDeleted marks a fixture lot as soft-deleted
func SoftDeleted(at time.Time, by string) func(*domain.Lot) {
	return func(l *domain.Lot) {
		l.Lifecycle = domain.Deleted(at, by)
	}
}

// Incident creates a health incident fixture with defaults
func (f *FixtureFactory) Incident(opts ...func(*incidentdomain.HealthIncident)) *incidentdomain.HealthIncident {
	seq := f.nextSeq()
	now := time.Now()

	incident := &incidentdomain.HealthIncident{
		ID:          uuid.New().String(),
		StudentID:   uuid.New().String(),
		Type:        incidentdomain.IncidentTypeInjury,
		Severity:    incidentdomain.SeverityLow,
		Status:      incidentdomain.StatusOpen,
		Description: fmt.Sprintf("Test incident %d", seq),
		OccurredAt:  now.Add(-1 * time.Hour),
		RecordedBy:  uuid.New().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, opt := range opts {
		opt(incident)
	}

	return incident
}

// Resolved marks a fixture incident as resolved
func Resolved(at time.Time, by string) func(*incidentdomain.HealthIncident) {
	return func(i *incidentdomain.HealthIncident) {
		resolution := "resolved in test"
		i.Status = incidentdomain.StatusResolved
		i.ResolvedAt = &at
		i.ResolvedBy = &by
		i.Resolution = &resolution
	}
}

// Administration creates a medication administration fixture
func (f *FixtureFactory) Administration(incidentID, itemID, lotID string, opts ...func(*incidentdomain.MedicationAdministration)) *incidentdomain.MedicationAdministration {
	now := time.Now()

	adm := &incidentdomain.MedicationAdministration{
		ID:             uuid.New().String(),
		IncidentID:     incidentID,
		ItemID:         itemID,
		LotID:          lotID,
		Dose:           decimal.NewFromInt(200),
		DoseUnit:       "mg",
		Quantity:       1,
		AdministeredBy: uuid.New().String(),
		AdministeredAt: now,
		CreatedAt:      now,
	}

	for _, opt := range opts {
		opt(adm)
	}

	return adm
}
