package domain

import "time"

// ChangeAction tags a changelog entry with what happened.
type ChangeAction string

const (
	ActionCreated              ChangeAction = "created"
	ActionUpdated              ChangeAction = "updated"
	ActionApproved             ChangeAction = "approved"
	ActionDeclined             ChangeAction = "declined"
	ActionInProgress           ChangeAction = "in_progress"
	ActionCompleted            ChangeAction = "completed"
	ActionAssigned             ChangeAction = "assigned"
	ActionReplacementConfirmed ChangeAction = "replacement_confirmed"
	ActionReplacementDeclined  ChangeAction = "replacement_declined"
	ActionStatusReset          ChangeAction = "status_reset"
)

// ChangeEvent is an immutable audit trail entry owned by its requisition.
// Entries are created only as a side effect of a successful lifecycle
// transition and are never mutated or deleted once appended.
type ChangeEvent struct {
	ID            string
	RequisitionID string
	Action        ChangeAction
	Actor         string
	Details       string
	Timestamp     time.Time
}
