package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory events
	EventStockAdjusted = "inventory.stock.adjusted"
	EventStockLow      = "inventory.stock.low"
	EventLotExpiring   = "inventory.lot.expiring"

	// Incident events
	EventIncidentRecorded       = "incident.recorded"
	EventMedicationAdministered = "incident.medication_administered"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangeIncidentEvents  = "incident.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Inventory events

// StockAdjustedEvent is published after any lot mutation changed an item's stock
type StockAdjustedEvent struct {
	ItemID       string `json:"item_id"`
	ItemKind     string `json:"item_kind"`
	CurrentStock int    `json:"current_stock"`
	AdjustedBy   string `json:"adjusted_by"`
}

// StockLowEvent is published when a recomputation finds stock below the minimum
type StockLowEvent struct {
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	ItemKind     string `json:"item_kind"`
	CurrentStock int    `json:"current_stock"`
	MinimumStock int    `json:"minimum_stock"`
}

// LotExpiringEvent is published for lots nearing their expiration date
type LotExpiringEvent struct {
	LotID           string    `json:"lot_id"`
	LotNumber       string    `json:"lot_number"`
	ItemID          string    `json:"item_id"`
	Quantity        int       `json:"quantity"`
	ExpirationDate  time.Time `json:"expiration_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// Incident events

// IncidentRecordedEvent is published when a health incident is recorded
type IncidentRecordedEvent struct {
	IncidentID string    `json:"incident_id"`
	StudentID  string    `json:"student_id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedBy string    `json:"recorded_by"`
}

// MedicationAdministeredEvent is published when medication is given during an incident
type MedicationAdministeredEvent struct {
	IncidentID     string `json:"incident_id"`
	ItemID         string `json:"item_id"`
	LotID          string `json:"lot_id"`
	LotNumber      string `json:"lot_number"`
	Dose           string `json:"dose"`
	DoseUnit       string `json:"dose_unit"`
	AdministeredBy string `json:"administered_by"`
}
