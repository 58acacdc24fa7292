package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/schoolmed/schoolmed-backend/internal/incident/domain"
	invdomain "github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/actor"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// IncidentService implements the health incident operations
type IncidentService struct {
	db        TxRunner
	incidents IncidentStore
	lots      MedicationSource
	items     ItemSource
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewIncidentService creates a new incident service
func NewIncidentService(db TxRunner, incidents IncidentStore, lots MedicationSource, items ItemSource, publisher EventPublisher, log *logger.Logger) *IncidentService {
	return &IncidentService{
		db:        db,
		incidents: incidents,
		lots:      lots,
		items:     items,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Used in tests.
func (s *IncidentService) WithClock(now func() time.Time) *IncidentService {
	s.now = now
	return s
}

// RecordIncidentInput carries the fields needed to record an incident
type RecordIncidentInput struct {
	StudentID   string                  `json:"student_id" validate:"required,uuid"`
	Type        domain.IncidentType     `json:"type" validate:"required"`
	Severity    domain.IncidentSeverity `json:"severity" validate:"required"`
	Description string                  `json:"description" validate:"required,max=2000"`
	OccurredAt  time.Time               `json:"occurred_at" validate:"required"`
}

// AdministerMedicationInput carries the fields needed to record a dose. When
// LotID is empty the soonest-expiring usable lot of the item is used.
type AdministerMedicationInput struct {
	ItemID   string          `json:"item_id" validate:"required,uuid"`
	LotID    string          `json:"lot_id,omitempty" validate:"omitempty,uuid"`
	Dose     decimal.Decimal `json:"dose" validate:"required"`
	DoseUnit string          `json:"dose_unit" validate:"required,max=50"`
	Quantity int             `json:"quantity" validate:"gte=0"`
	Notes    *string         `json:"notes,omitempty"`
}

// IncidentDetail is an incident enriched with its medication administrations
type IncidentDetail struct {
	*domain.HealthIncident
	Administrations []*domain.MedicationAdministration `json:"administrations"`
}

// RecordIncident records a new health incident for a student
func (s *IncidentService) RecordIncident(ctx context.Context, input RecordIncidentInput) (*domain.HealthIncident, error) {
	details := map[string]string{}
	if !input.Type.Valid() {
		details["type"] = "unknown incident type"
	}
	if !input.Severity.Valid() {
		details["severity"] = "unknown severity"
	}
	if input.OccurredAt.After(s.now()) {
		details["occurred_at"] = "occurred_at cannot be in the future"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	incident := &domain.HealthIncident{
		StudentID:   input.StudentID,
		Type:        input.Type,
		Severity:    input.Severity,
		Status:      domain.StatusOpen,
		Description: input.Description,
		OccurredAt:  input.OccurredAt,
		RecordedBy:  actor.ID(ctx),
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", incident.ID).
		Str("student_id", incident.StudentID).
		Str("severity", string(incident.Severity)).
		Msg("health incident recorded")

	s.publisher.PublishIncidentRecorded(ctx, messaging.IncidentRecordedEvent{
		IncidentID: incident.ID,
		StudentID:  incident.StudentID,
		Type:       string(incident.Type),
		Severity:   string(incident.Severity),
		OccurredAt: incident.OccurredAt,
		RecordedBy: incident.RecordedBy,
	})

	return incident, nil
}

// GetIncident gets an incident with its administrations
func (s *IncidentService) GetIncident(ctx context.Context, id string) (*IncidentDetail, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	adms, err := s.incidents.ListAdministrations(ctx, id)
	if err != nil {
		return nil, err
	}

	return &IncidentDetail{
		HealthIncident:  incident,
		Administrations: adms,
	}, nil
}

// ListIncidents lists incidents with pagination, optionally filtered by status
func (s *IncidentService) ListIncidents(ctx context.Context, page, perPage int, status domain.IncidentStatus) ([]*domain.HealthIncident, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.incidents.List(ctx, page, perPage, status)
}

// ListByStudent lists a student's incidents
func (s *IncidentService) ListByStudent(ctx context.Context, studentID string) ([]*domain.HealthIncident, error) {
	return s.incidents.ListByStudent(ctx, studentID)
}

// ResolveIncident marks an open incident as resolved. Resolving an already
// resolved incident is a conflict.
func (s *IncidentService) ResolveIncident(ctx context.Context, id, resolution string) (*domain.HealthIncident, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !incident.IsOpen() {
		return nil, errors.Conflict("incident is already resolved")
	}

	affected, err := s.incidents.Resolve(ctx, id, actor.ID(ctx), resolution)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the race with a concurrent resolve.
		return nil, errors.Conflict("incident is already resolved")
	}

	return s.incidents.GetByID(ctx, id)
}

// AdministerMedication records a dose given during an incident and deducts
// the consumed stock from a lot. The lot defaults to the soonest-expiring
// usable lot of the item.
func (s *IncidentService) AdministerMedication(ctx context.Context, incidentID string, input AdministerMedicationInput) (*domain.MedicationAdministration, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !incident.IsOpen() {
		return nil, errors.Conflict("cannot administer medication on a resolved incident")
	}

	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Kind != invdomain.KindMedication {
		return nil, errors.Validation(map[string]string{
			"item_id": "item is not a medication",
		})
	}
	if input.Dose.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Validation(map[string]string{
			"dose": "dose must be greater than zero",
		})
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}

	var lot *invdomain.Lot
	if input.LotID != "" {
		lot, err = s.lots.GetLot(ctx, input.LotID)
		if err != nil {
			return nil, err
		}
		if lot.ItemID != item.ID {
			return nil, errors.Validation(map[string]string{
				"lot_id": "lot does not belong to this item",
			})
		}
	} else {
		lot, err = s.lots.BestLot(ctx, item.ID)
		if err != nil {
			return nil, err
		}
	}

	adm := &domain.MedicationAdministration{
		IncidentID:     incident.ID,
		ItemID:         item.ID,
		LotID:          lot.ID,
		Dose:           input.Dose,
		DoseUnit:       input.DoseUnit,
		Quantity:       quantity,
		Notes:          input.Notes,
		AdministeredBy: actor.ID(ctx),
		AdministeredAt: s.now(),
	}

	// The deduction and the administration record commit together. A failed
	// insert must roll the consumed quantity back.
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.lots.Consume(ctx, lot.ID, quantity); err != nil {
			return err
		}
		return s.incidents.CreateAdministration(ctx, adm)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", incident.ID).
		Str("item_id", item.ID).
		Str("lot_id", lot.ID).
		Int("quantity", quantity).
		Msg("medication administered")

	s.publisher.PublishMedicationAdministered(ctx, messaging.MedicationAdministeredEvent{
		IncidentID:     incident.ID,
		ItemID:         item.ID,
		LotID:          lot.ID,
		LotNumber:      lot.LotNumber,
		Dose:           adm.Dose.String(),
		DoseUnit:       adm.DoseUnit,
		AdministeredBy: adm.AdministeredBy,
	})

	return adm, nil
}
