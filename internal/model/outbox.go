package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

const (
	EventPendingApproved    = "PENDING_APPROVED"
	EventPendingDisapproved = "PENDING_DISAPPROVED"
	EventPendingRejected    = "PENDING_REJECTED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// DecisionEvent is the payload recorded for every workflow decision.
type DecisionEvent struct {
	PendingID      int64         `json:"pending_id"`
	EntityKind     string        `json:"entity_kind"`
	EntityID       int64         `json:"entity_id"`
	Role           string        `json:"role"`
	EntityStatus   EntityStatus  `json:"entity_status"`
	State          DecisionState `json:"state,omitempty"`
	NotificationID int64         `json:"notification_id,omitempty"`
	Remark         string        `json:"remark,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}
