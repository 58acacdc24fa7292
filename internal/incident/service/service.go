// Package service implements the health incident business rules: recording
// and resolving incidents, and administering medication against tracked
// inventory lots.
package service

import (
	"context"

	incidentdomain "github.com/schoolmed/schoolmed-backend/internal/incident/domain"
	invdomain "github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// IncidentStore is the slice of the incident repository the service depends on.
type IncidentStore interface {
	Create(ctx context.Context, incident *incidentdomain.HealthIncident) error
	GetByID(ctx context.Context, id string) (*incidentdomain.HealthIncident, error)
	ListByStudent(ctx context.Context, studentID string) ([]*incidentdomain.HealthIncident, error)
	List(ctx context.Context, page, perPage int, status incidentdomain.IncidentStatus) ([]*incidentdomain.HealthIncident, int64, error)
	Resolve(ctx context.Context, id string, resolvedBy, resolution string) (int64, error)
	CreateAdministration(ctx context.Context, adm *incidentdomain.MedicationAdministration) error
	ListAdministrations(ctx context.Context, incidentID string) ([]*incidentdomain.MedicationAdministration, error)
}

// TxRunner runs a function inside a database transaction carried through the
// context. Implemented by database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// MedicationSource is the slice of the inventory lot service used to pick and
// consume medication stock. Implemented by service.LotService in the
// inventory module.
type MedicationSource interface {
	BestLot(ctx context.Context, itemID string) (*invdomain.Lot, error)
	GetLot(ctx context.Context, id string) (*invdomain.Lot, error)
	Consume(ctx context.Context, lotID string, quantity int) (*invdomain.Lot, error)
}

// ItemSource resolves stock items so administrations can verify they target
// a medication. Implemented by repository.ItemRepository in the inventory
// module.
type ItemSource interface {
	GetByID(ctx context.Context, id string) (*invdomain.StockItem, error)
}

// EventPublisher publishes incident events. Implemented by
// events.IncidentEventPublisher; publishing is best-effort.
type EventPublisher interface {
	PublishIncidentRecorded(ctx context.Context, data messaging.IncidentRecordedEvent)
	PublishMedicationAdministered(ctx context.Context, data messaging.MedicationAdministeredEvent)
}
