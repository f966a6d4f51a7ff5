package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
)

// Emitter records workflow events in the outbox. The outbox repository is
// passed per call so events land in whatever transaction the caller holds.
type Emitter interface {
	Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) (*model.OutboxEvent, error)
}

type EventService struct {
	now func() time.Time
}

func NewEventService() *EventService {
	return &EventService{now: time.Now}
}

func (s *EventService) Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) (*model.OutboxEvent, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now().UTC()
	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := outbox.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create outbox event: %w", err)
	}
	return event, nil
}
