package events

import (
	"time"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequisitionCreated   EventType = "requisition_created"
	EventRequisitionStatus    EventType = "requisition_status_changed"
	EventRequisitionAssigned  EventType = "requisition_assigned"
	EventRequisitionDeleted   EventType = "requisition_deleted"
	EventReplacementRequested EventType = "replacement_requested"
	EventReplacementResolved  EventType = "replacement_resolved"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	RequisitionID string      `json:"requisition_id"`
	Actor         string      `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// RequisitionCreatedPayload payload.
type RequisitionCreatedPayload struct {
	DisplayID string                 `json:"display_id"`
	Type      domain.RequisitionType `json:"requisition_type"`
	Priority  domain.Priority        `json:"priority"`
	Subject   string                 `json:"subject"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssignedTo string `json:"assigned_to"`
}

// ReplacementRequestedPayload carries the out-of-band delivery material for
// a freshly minted confirmation token.
type ReplacementRequestedPayload struct {
	Token             string `json:"token"`
	ReplacementUserID string `json:"replacement_user_id"`
	ReplacementName   string `json:"replacement_name"`
}

// ReplacementResolvedPayload payload.
type ReplacementResolvedPayload struct {
	Confirmed       bool   `json:"confirmed"`
	ReplacementName string `json:"replacement_name"`
}
