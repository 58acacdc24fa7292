// Package domain holds the health incident model: incidents reported for a
// student and the medication administrations that resolve them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncidentType classifies a health incident
type IncidentType string

const (
	IncidentTypeInjury  IncidentType = "injury"
	IncidentTypeIllness IncidentType = "illness"
	IncidentTypeAllergy IncidentType = "allergy"
	IncidentTypeChronic IncidentType = "chronic"
	IncidentTypeOther   IncidentType = "other"
)

// Valid reports whether t is a known incident type
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentTypeInjury, IncidentTypeIllness, IncidentTypeAllergy, IncidentTypeChronic, IncidentTypeOther:
		return true
	}
	return false
}

// IncidentSeverity grades how serious an incident is
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// Valid reports whether s is a known severity
func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStatus tracks the incident lifecycle
type IncidentStatus string

const (
	StatusOpen     IncidentStatus = "open"
	StatusResolved IncidentStatus = "resolved"
)

// HealthIncident is a health event reported for a student
type HealthIncident struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	Type        IncidentType     `db:"type" json:"type"`
	Severity    IncidentSeverity `db:"severity" json:"severity"`
	Status      IncidentStatus   `db:"status" json:"status"`
	Description string           `db:"description" json:"description"`
	OccurredAt  time.Time        `db:"occurred_at" json:"occurred_at"`
	RecordedBy  string           `db:"recorded_by" json:"recorded_by"`
	ResolvedAt  *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy  *string          `db:"resolved_by" json:"resolved_by,omitempty"`
	Resolution  *string          `db:"resolution" json:"resolution,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the incident is still open
func (i *HealthIncident) IsOpen() bool {
	return i.Status == StatusOpen
}

// MedicationAdministration records a dose given during an incident. The dose
// is taken from a specific lot so the consumed stock stays traceable.
type MedicationAdministration struct {
	ID             string          `db:"id" json:"id"`
	IncidentID     string          `db:"incident_id" json:"incident_id"`
	ItemID         string          `db:"item_id" json:"item_id"`
	LotID          string          `db:"lot_id" json:"lot_id"`
	Dose           decimal.Decimal `db:"dose" json:"dose"`
	DoseUnit       string          `db:"dose_unit" json:"dose_unit"`
	Quantity       int             `db:"quantity" json:"quantity"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	AdministeredBy string          `db:"administered_by" json:"administered_by"`
	AdministeredAt time.Time       `db:"administered_at" json:"administered_at"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
