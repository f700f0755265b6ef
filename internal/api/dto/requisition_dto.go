package dto

import (
	"time"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/service"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

const dateLayout = "2006-01-02"

// ITDetailsRequest creation payload for IT requisitions.
type ITDetailsRequest struct {
	Category string `json:"category" validate:"required"`
}

// ConferenceRoomDetailsRequest creation payload for room bookings.
type ConferenceRoomDetailsRequest struct {
	RoomName       string    `json:"room_name" validate:"required"`
	StartDatetime  time.Time `json:"start_datetime" validate:"required"`
	EndDatetime    time.Time `json:"end_datetime" validate:"required"`
	AttendeesCount int       `json:"attendees_count" validate:"required,min=1"`
	Equipment      string    `json:"equipment_needed"`
}

// LeaveDetailsRequest creation payload for leave requests. Dates are
// calendar days, not instants.
type LeaveDetailsRequest struct {
	LeaveType         string  `json:"leave_type" validate:"required"`
	StartDate         string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	ReplacementUserID *string `json:"replacement_user_id"`
	ReplacementName   string  `json:"replacement_name"`
}

// RequisitionCreateRequest payload for creation. Exactly one details block
// must be present, matching Type.
type RequisitionCreateRequest struct {
	Type        string `json:"type" validate:"required,oneof=it conference_room leave"`
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`

	IT             *ITDetailsRequest             `json:"it_details"`
	ConferenceRoom *ConferenceRoomDetailsRequest `json:"conference_room_details"`
	Leave          *LeaveDetailsRequest          `json:"leave_details"`
}

// ToInput converts the request into the service-level input.
func (r *RequisitionCreateRequest) ToInput() (service.RequisitionCreateInput, error) {
	input := service.RequisitionCreateInput{
		Type:        domain.RequisitionType(r.Type),
		Subject:     r.Subject,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
	}
	if r.IT != nil {
		input.IT = &service.ITInput{Category: r.IT.Category}
	}
	if r.ConferenceRoom != nil {
		input.ConferenceRoom = &service.ConferenceRoomInput{
			RoomName:       r.ConferenceRoom.RoomName,
			StartDatetime:  r.ConferenceRoom.StartDatetime,
			EndDatetime:    r.ConferenceRoom.EndDatetime,
			AttendeesCount: r.ConferenceRoom.AttendeesCount,
			Equipment:      r.ConferenceRoom.Equipment,
		}
	}
	if r.Leave != nil {
		start, err := time.Parse(dateLayout, r.Leave.StartDate)
		if err != nil {
			return input, apperrors.NewValidationError("invalid start_date", nil)
		}
		end, err := time.Parse(dateLayout, r.Leave.EndDate)
		if err != nil {
			return input, apperrors.NewValidationError("invalid end_date", nil)
		}
		input.Leave = &service.LeaveInput{
			LeaveType:         r.Leave.LeaveType,
			StartDate:         start,
			EndDate:           end,
			ReplacementUserID: r.Leave.ReplacementUserID,
			ReplacementName:   r.Leave.ReplacementName,
		}
	}
	return input, nil
}

// RequisitionUpdateRequest payload for partial updates.
type RequisitionUpdateRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=pending approved in_progress completed declined"`
	AssignedTo  *string `json:"assigned_to"`
	Subject     *string `json:"subject" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// ToInput converts the request into the service-level input.
func (r *RequisitionUpdateRequest) ToInput() service.RequisitionUpdateInput {
	input := service.RequisitionUpdateInput{
		AssignedTo:  r.AssignedTo,
		Subject:     r.Subject,
		Description: r.Description,
	}
	if r.Status != nil {
		status := domain.Status(*r.Status)
		input.Status = &status
	}
	if r.Priority != nil {
		priority := domain.Priority(*r.Priority)
		input.Priority = &priority
	}
	return input
}

// ReplacementDecisionRequest payload for resolving a confirmation token.
type ReplacementDecisionRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

// ChangeEventResponse is one changelog row.
type ChangeEventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Details   string    `json:"details"`
}

// ITDetailsResponse view of IT fields.
type ITDetailsResponse struct {
	Category   string  `json:"category"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// ConferenceRoomDetailsResponse view of booking fields.
type ConferenceRoomDetailsResponse struct {
	RoomName       string    `json:"room_name"`
	StartDatetime  time.Time `json:"start_datetime"`
	EndDatetime    time.Time `json:"end_datetime"`
	AttendeesCount int       `json:"attendees_count"`
	Equipment      *string   `json:"equipment_needed,omitempty"`
}

// LeaveDetailsResponse view of leave fields.
type LeaveDetailsResponse struct {
	LeaveType            string  `json:"leave_type"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	TotalDays            int     `json:"total_days"`
	ReplacementUserID    *string `json:"replacement_user_id,omitempty"`
	ReplacementName      string  `json:"replacement_name,omitempty"`
	ReplacementConfirmed *bool   `json:"replacement_confirmed"`
}

// RequisitionResponse is the full requisition view.
type RequisitionResponse struct {
	ID                   string    `json:"id"`
	DisplayID            string    `json:"display_id"`
	Type                 string    `json:"type"`
	Status               string    `json:"status"`
	Subject              string    `json:"subject"`
	Description          string    `json:"description"`
	Priority             string    `json:"priority"`
	RequesterID          string    `json:"requester_id"`
	RequesterName        string    `json:"requester_name"`
	RequesterEmail       string    `json:"requester_email"`
	RequesterDesignation string    `json:"requester_designation,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	IT             *ITDetailsResponse             `json:"it_details,omitempty"`
	ConferenceRoom *ConferenceRoomDetailsResponse `json:"conference_room_details,omitempty"`
	Leave          *LeaveDetailsResponse          `json:"leave_details,omitempty"`

	Changelog []ChangeEventResponse `json:"changelog,omitempty"`
}

// NewRequisitionResponse maps a domain requisition.
func NewRequisitionResponse(req *domain.Requisition) RequisitionResponse {
	resp := RequisitionResponse{
		ID:                   req.ID,
		DisplayID:            req.DisplayID,
		Type:                 string(req.Type),
		Status:               string(req.Status),
		Subject:              req.Subject,
		Description:          req.Description,
		Priority:             string(req.Priority),
		RequesterID:          req.RequesterID,
		RequesterName:        req.RequesterName,
		RequesterEmail:       req.RequesterEmail,
		RequesterDesignation: req.RequesterDesignation,
		CreatedAt:            req.CreatedAt,
		UpdatedAt:            req.UpdatedAt,
	}
	if req.IT != nil {
		resp.IT = &ITDetailsResponse{Category: req.IT.Category, AssignedTo: req.IT.AssignedTo}
	}
	if req.ConferenceRoom != nil {
		resp.ConferenceRoom = &ConferenceRoomDetailsResponse{
			RoomName:       req.ConferenceRoom.RoomName,
			StartDatetime:  req.ConferenceRoom.StartDatetime,
			EndDatetime:    req.ConferenceRoom.EndDatetime,
			AttendeesCount: req.ConferenceRoom.AttendeesCount,
			Equipment:      req.ConferenceRoom.Equipment,
		}
	}
	if req.Leave != nil {
		resp.Leave = &LeaveDetailsResponse{
			LeaveType:            req.Leave.LeaveType,
			StartDate:            req.Leave.StartDate.Format(dateLayout),
			EndDate:              req.Leave.EndDate.Format(dateLayout),
			TotalDays:            req.Leave.TotalDays,
			ReplacementUserID:    req.Leave.ReplacementUserID,
			ReplacementName:      req.Leave.ReplacementName,
			ReplacementConfirmed: req.Leave.ReplacementConfirmed,
		}
	}
	for _, entry := range req.Changelog {
		resp.Changelog = append(resp.Changelog, ChangeEventResponse{
			Timestamp: entry.Timestamp,
			Action:    string(entry.Action),
			User:      entry.Actor,
			Details:   entry.Details,
		})
	}
	return resp
}

// NewRequisitionResponses maps a slice without changelog hydration.
func NewRequisitionResponses(reqs []domain.Requisition) []RequisitionResponse {
	out := make([]RequisitionResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewRequisitionResponse(&reqs[i]))
	}
	return out
}

// PendingConfirmationResponse is one outstanding replacement request
// addressed to the current user.
type PendingConfirmationResponse struct {
	Token       string              `json:"token"`
	Requisition RequisitionResponse `json:"requisition"`
}

// NewPendingConfirmationResponses maps pending confirmations.
func NewPendingConfirmationResponses(items []domain.PendingConfirmation) []PendingConfirmationResponse {
	out := make([]PendingConfirmationResponse, 0, len(items))
	for i := range items {
		req := items[i].Requisition
		out = append(out, PendingConfirmationResponse{
			Token:       items[i].Token,
			Requisition: NewRequisitionResponse(&req),
		})
	}
	return out
}
