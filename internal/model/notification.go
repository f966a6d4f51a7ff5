package model

import (
	"fmt"
	"time"
)

// DecisionState tracks where a pending record sits in the approve/disapprove flow.
type DecisionState string

const (
	DecisionOpen           DecisionState = "open"
	DecisionAwaitingRemark DecisionState = "awaiting_remark"
	DecisionRejected       DecisionState = "rejected"
)

// PendingNotification is an entity submission awaiting an admin decision.
// JSON names follow the admin dashboard's wire format.
type PendingNotification struct {
	ID               int64         `json:"id" db:"id"`
	TargetEntityID   int64         `json:"new_id" db:"new_id" binding:"required"`
	TargetEntityKind string        `json:"name" db:"name" binding:"required"`
	Role             string        `json:"role" db:"role" binding:"required,role"`
	Description      string        `json:"description" db:"description" binding:"required"`
	Date             string        `json:"date" db:"date"`
	Time             string        `json:"time" db:"time"`
	Remark           *string       `json:"remark" db:"remark"`
	State            DecisionState `json:"state" db:"state"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// Stamp sets the split date/time submission components from t.
func (p *PendingNotification) Stamp(t time.Time) {
	p.CreatedAt = t
	p.Date = t.Format("2006-01-02")
	p.Time = t.Format("15:04:05")
}

// DeliveredNotification is a role-addressed, read-tracked message.
type DeliveredNotification struct {
	ID          int64     `json:"id" db:"id"`
	Heading     string    `json:"heading" db:"heading"`
	Description string    `json:"description" db:"description"`
	Role        string    `json:"role" db:"role"`
	Readed      ReadFlag  `json:"readed" db:"readed"`
	Avatar      *string   `json:"avatar,omitempty" db:"avatar"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// VisibleTo reports whether a client with role should see n. Exact match only.
func (n *DeliveredNotification) VisibleTo(role string) bool {
	return role != "" && n.Role == role
}

// EntityStatus is the approval status of a submitted entity.
type EntityStatus string

const (
	EntityStatusPending  EntityStatus = "pending"
	EntityStatusApproved EntityStatus = "approved"
	EntityStatusRejected EntityStatus = "rejected"
)

// EntityStatusFromCode decodes the dashboard's {status: 1|0} payload.
func EntityStatusFromCode(code int) (EntityStatus, error) {
	switch code {
	case 1:
		return EntityStatusApproved, nil
	case 0:
		return EntityStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown status code %d", code)
	}
}

func (s EntityStatus) Code() int {
	if s == EntityStatusApproved {
		return 1
	}
	return 0
}

const (
	HeadingApproved = "Approved"
	HeadingRejected = "Rejected"
)
