package domain

import "time"

// RequisitionType discriminates the three requisition variants.
type RequisitionType string

const (
	TypeIT             RequisitionType = "it"
	TypeConferenceRoom RequisitionType = "conference_room"
	TypeLeave          RequisitionType = "leave"
)

// ValidRequisitionType reports whether t is a known variant.
func ValidRequisitionType(t RequisitionType) bool {
	switch t {
	case TypeIT, TypeConferenceRoom, TypeLeave:
		return true
	}
	return false
}

// Status enumerates lifecycle states for requisitions.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeclined   Status = "declined"
)

// Priority enumerates urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ITDetails carries fields specific to IT requisitions.
type ITDetails struct {
	Category   string
	AssignedTo *string
}

// ConferenceRoomDetails carries fields specific to room bookings.
type ConferenceRoomDetails struct {
	RoomName       string
	StartDatetime  time.Time
	EndDatetime    time.Time
	AttendeesCount int
	Equipment      *string
}

// LeaveDetails carries fields specific to leave requests.
// ReplacementConfirmed is tri-state: nil until the named replacement has
// resolved their confirmation token.
type LeaveDetails struct {
	LeaveType            string
	StartDate            time.Time
	EndDate              time.Time
	TotalDays            int
	ReplacementUserID    *string
	ReplacementName      string
	ReplacementConfirmed *bool
}

// Requisition is the aggregate tracked through the approval lifecycle.
// Exactly one of IT, ConferenceRoom, Leave is non-nil, matching Type.
type Requisition struct {
	ID          string
	DisplayID   string
	RequesterID string
	Type        RequisitionType
	Status      Status
	Subject     string
	Description string
	Priority    Priority
	CreatedAt   time.Time
	UpdatedAt   time.Time

	IT             *ITDetails
	ConferenceRoom *ConferenceRoomDetails
	Leave          *LeaveDetails

	// Requester identity, denormalized from the users table on read.
	RequesterName        string
	RequesterEmail       string
	RequesterDesignation string

	Changelog []ChangeEvent
}

// Terminal reports whether no further lifecycle transition is permitted.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusDeclined
}
