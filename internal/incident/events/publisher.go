package events

import (
	"context"

	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// IncidentEventPublisher publishes incident-related events
type IncidentEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewIncidentEventPublisher creates a new incident event publisher
func NewIncidentEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*IncidentEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeIncidentEvents, "schoolhealth-service", log)
	if err != nil {
		return nil, err
	}

	return &IncidentEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishIncidentRecorded publishes an incident recorded event
func (p *IncidentEventPublisher) PublishIncidentRecorded(ctx context.Context, data messaging.IncidentRecordedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventIncidentRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("incident_id", data.IncidentID).Msg("failed to publish incident recorded event")
	}
}

// PublishMedicationAdministered publishes a medication administered event
func (p *IncidentEventPublisher) PublishMedicationAdministered(ctx context.Context, data messaging.MedicationAdministeredEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventMedicationAdministered, data); err != nil {
		p.logger.Error().Err(err).Str("incident_id", data.IncidentID).Msg("failed to publish medication administered event")
	}
}
