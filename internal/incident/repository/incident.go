package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/schoolmed/schoolmed-backend/internal/incident/domain"
	"github.com/schoolmed/schoolmed-backend/pkg/database"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
)

// IncidentRepository handles health incident persistence
type IncidentRepository struct {
	db *database.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *database.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create creates a new health incident
func (r *IncidentRepository) Create(ctx context.Context, incident *domain.HealthIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}

	query := `
		INSERT INTO health_incidents (
			id, student_id, type, severity, status, description, occurred_at, recorded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		incident.ID, incident.StudentID, incident.Type, incident.Severity,
		incident.Status, incident.Description, incident.OccurredAt, incident.RecordedBy,
	).Scan(&incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*domain.HealthIncident, error) {
	var incident domain.HealthIncident
	query := `SELECT * FROM health_incidents WHERE id = $1`
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("health incident")
		}
		return nil, err
	}
	return &incident, nil
}

// ListByStudent lists a student's incidents, newest first
func (r *IncidentRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.HealthIncident, error) {
	var incidents []*domain.HealthIncident
	query := `SELECT * FROM health_incidents WHERE student_id = $1 ORDER BY occurred_at DESC`
	if err := r.db.SelectContext(ctx, &incidents, query, studentID); err != nil {
		return nil, err
	}
	return incidents, nil
}

// List lists incidents with pagination, optionally filtered by status
func (r *IncidentRepository) List(ctx context.Context, page, perPage int, status domain.IncidentStatus) ([]*domain.HealthIncident, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	var incidents []*domain.HealthIncident

	if status != "" {
		countQuery := `SELECT COUNT(*) FROM health_incidents WHERE status = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, status); err != nil {
			return nil, 0, err
		}
		listQuery := `SELECT * FROM health_incidents WHERE status = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &incidents, listQuery, status, perPage, offset); err != nil {
			return nil, 0, err
		}
		return incidents, total, nil
	}

	countQuery := `SELECT COUNT(*) FROM health_incidents`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}
	listQuery := `SELECT * FROM health_incidents ORDER BY occurred_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &incidents, listQuery, perPage, offset); err != nil {
		return nil, 0, err
	}
	return incidents, total, nil
}

// Resolve marks an open incident as resolved. Returns the number of rows
// changed; zero means the incident was missing or already resolved.
func (r *IncidentRepository) Resolve(ctx context.Context, id string, resolvedBy, resolution string) (int64, error) {
	query := `
		UPDATE health_incidents
		SET status = $2, resolved_at = NOW(), resolved_by = $3, resolution = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, domain.StatusResolved, resolvedBy, resolution, domain.StatusOpen)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateAdministration records a medication administration for an incident
func (r *IncidentRepository) CreateAdministration(ctx context.Context, adm *domain.MedicationAdministration) error {
	if adm.ID == "" {
		adm.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medication_administrations (
			id, incident_id, item_id, lot_id, dose, dose_unit, quantity, notes,
			administered_by, administered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		adm.ID, adm.IncidentID, adm.ItemID, adm.LotID, adm.Dose, adm.DoseUnit,
		adm.Quantity, adm.Notes, adm.AdministeredBy, adm.AdministeredAt,
	).Scan(&adm.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListAdministrations lists the administrations recorded for an incident
func (r *IncidentRepository) ListAdministrations(ctx context.Context, incidentID string) ([]*domain.MedicationAdministration, error) {
	var adms []*domain.MedicationAdministration
	query := `SELECT * FROM medication_administrations WHERE incident_id = $1 ORDER BY administered_at`
	if err := r.db.SelectContext(ctx, &adms, query, incidentID); err != nil {
		return nil, err
	}
	return adms, nil
}
