package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/events"
	"github.com/spec-kit/requisition-service/internal/repository"
	"github.com/spec-kit/requisition-service/internal/store"
	"github.com/spec-kit/requisition-service/internal/workflow"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// RequisitionService coordinates the requisition lifecycle: it validates
// transitions through the workflow engine, persists them, appends the
// changelog entry, refreshes the list cache wholesale and publishes events.
type RequisitionService struct {
	requisitions repository.RequisitionRepository
	changelog    repository.ChangelogRepository
	counters     repository.CounterRepository
	users        repository.UserRepository
	replacements *ReplacementService
	cache        *store.RequisitionCache
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// RequisitionDependencies bundles collaborators for the service.
type RequisitionDependencies struct {
	RequisitionRepo repository.RequisitionRepository
	ChangelogRepo   repository.ChangelogRepository
	CounterRepo     repository.CounterRepository
	UserRepo        repository.UserRepository
	Replacements    *ReplacementService
	Cache           *store.RequisitionCache
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// ITInput carries IT-specific creation fields.
type ITInput struct {
	Category string
}

// ConferenceRoomInput carries booking-specific creation fields.
type ConferenceRoomInput struct {
	RoomName       string
	StartDatetime  time.Time
	EndDatetime    time.Time
	AttendeesCount int
	Equipment      string
}

// LeaveInput carries leave-specific creation fields.
type LeaveInput struct {
	LeaveType         string
	StartDate         time.Time
	EndDate           time.Time
	ReplacementUserID *string
	ReplacementName   string
}

// RequisitionCreateInput describes a creation payload; exactly one variant
// block must be set, matching Type.
type RequisitionCreateInput struct {
	Type        domain.RequisitionType
	Subject     string
	Description string
	Priority    domain.Priority

	IT             *ITInput
	ConferenceRoom *ConferenceRoomInput
	Leave          *LeaveInput
}

// RequisitionUpdateInput describes a partial update: a status transition,
// an IT assignment, or a field edit by the requester.
type RequisitionUpdateInput struct {
	Status      *domain.Status
	AssignedTo  *string
	Subject     *string
	Description *string
	Priority    *domain.Priority
}

// NewRequisitionService constructs the service.
func NewRequisitionService(deps RequisitionDependencies) *RequisitionService {
	return &RequisitionService{
		requisitions: deps.RequisitionRepo,
		changelog:    deps.ChangelogRepo,
		counters:     deps.CounterRepo,
		users:        deps.UserRepo,
		replacements: deps.Replacements,
		cache:        deps.Cache,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	}
}

// Create validates and persists a new requisition in pending status,
// appends the initial changelog entry and, for leave requests naming a
// replacement, issues the confirmation token.
func (s *RequisitionService) Create(ctx context.Context, actor *domain.User, input RequisitionCreateInput) (*domain.Requisition, error) {
	if !domain.ValidRequisitionType(input.Type) {
		return nil, apperrors.NewValidationError("invalid requisition type", nil)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", nil)
	}

	req := &domain.Requisition{
		RequesterID: actor.ID,
		Type:        input.Type,
		Status:      domain.StatusPending,
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
	}

	switch input.Type {
	case domain.TypeIT:
		if input.IT == nil {
			return nil, apperrors.NewValidationError("it details required", nil)
		}
		req.IT = &domain.ITDetails{Category: input.IT.Category}
	case domain.TypeConferenceRoom:
		cr := input.ConferenceRoom
		if cr == nil {
			return nil, apperrors.NewValidationError("conference room details required", nil)
		}
		if !cr.StartDatetime.Before(cr.EndDatetime) {
			return nil, apperrors.NewValidationError("booking start must be before end", nil)
		}
		details := &domain.ConferenceRoomDetails{
			RoomName:       cr.RoomName,
			StartDatetime:  cr.StartDatetime,
			EndDatetime:    cr.EndDatetime,
			AttendeesCount: cr.AttendeesCount,
		}
		if cr.Equipment != "" {
			equipment := cr.Equipment
			details.Equipment = &equipment
		}
		req.ConferenceRoom = details
	case domain.TypeLeave:
		lv := input.Leave
		if lv == nil {
			return nil, apperrors.NewValidationError("leave details required", nil)
		}
		totalDays := domain.CalculateBusinessDays(lv.StartDate, lv.EndDate)
		if lv.EndDate.Before(lv.StartDate) || totalDays == 0 {
			return nil, apperrors.NewValidationError("leave range must cover at least one business day", nil)
		}
		details := &domain.LeaveDetails{
			LeaveType:       lv.LeaveType,
			StartDate:       lv.StartDate,
			EndDate:         lv.EndDate,
			TotalDays:       totalDays,
			ReplacementName: lv.ReplacementName,
		}
		if lv.ReplacementUserID != nil {
			replacement, err := s.users.GetByID(ctx, *lv.ReplacementUserID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, apperrors.NewValidationError("replacement user not found", nil)
				}
				return nil, err
			}
			details.ReplacementUserID = &replacement.ID
			details.ReplacementName = replacement.FullName
		}
		req.Leave = details
	}

	displayID, err := s.nextDisplayID(ctx, input.Type)
	if err != nil {
		return nil, err
	}
	req.DisplayID = displayID

	if err := s.requisitions.Create(ctx, req); err != nil {
		return nil, err
	}
	req.RequesterName = actor.FullName
	req.RequesterEmail = actor.Email
	req.RequesterDesignation = actor.Designation

	if err := s.appendChange(ctx, req.ID, domain.ActionCreated, actor.FullName,
		fmt.Sprintf("Requisition created by %s", actor.FullName)); err != nil {
		return nil, err
	}

	if req.Type == domain.TypeLeave && req.Leave.ReplacementUserID != nil {
		if _, err := s.replacements.Issue(ctx, req); err != nil {
			return nil, err
		}
	}

	s.refreshCache(ctx, req.Type)
	s.publish(ctx, events.Event{
		Type:          events.EventRequisitionCreated,
		RequisitionID: req.ID,
		Actor:         actor.FullName,
		Payload: events.RequisitionCreatedPayload{
			DisplayID: req.DisplayID,
			Type:      req.Type,
			Priority:  req.Priority,
			Subject:   req.Subject,
		},
	})
	return s.load(ctx, req.ID)
}

// List returns requisitions visible to the actor, ordered by role:
// employees see only their own; managers see others' (leave requests only
// once the replacement question is settled) with pending approvals first;
// it staff see everything, others' requests before their own.
func (s *RequisitionService) List(ctx context.Context, actor *domain.User, t *domain.RequisitionType) ([]domain.Requisition, error) {
	all, err := s.listAll(ctx, t)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case domain.RoleEmployee:
		own := make([]domain.Requisition, 0, len(all))
		for _, req := range all {
			if req.RequesterID == actor.ID {
				own = append(own, req)
			}
		}
		return own, nil
	case domain.RoleManager:
		visible := make([]domain.Requisition, 0, len(all))
		for _, req := range all {
			if req.RequesterID == actor.ID {
				continue
			}
			if req.Type == domain.TypeLeave && req.Leave != nil &&
				req.Leave.ReplacementUserID != nil &&
				(req.Leave.ReplacementConfirmed == nil || !*req.Leave.ReplacementConfirmed) {
				continue
			}
			visible = append(visible, req)
		}
		pending := partition(visible, func(r domain.Requisition) bool { return r.Status == domain.StatusPending })
		decided := partition(visible, func(r domain.Requisition) bool { return r.Status != domain.StatusPending })
		sort.SliceStable(decided, func(i, j int) bool { return decided[i].UpdatedAt.After(decided[j].UpdatedAt) })
		return append(pending, decided...), nil
	case domain.RoleIT:
		others := partition(all, func(r domain.Requisition) bool { return r.RequesterID != actor.ID })
		own := partition(all, func(r domain.Requisition) bool { return r.RequesterID == actor.ID })
		return append(others, own...), nil
	}
	return all, nil
}

// Get fetches a requisition with its changelog, enforcing visibility.
func (s *RequisitionService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Requisition, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEmployee && req.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return req, nil
}

// Update applies a partial update. A status change runs through the
// lifecycle engine and a compare-and-swap on the current status, so two
// racing transitions on the same requisition cannot both land.
func (s *RequisitionService) Update(ctx context.Context, actor *domain.User, id string, input RequisitionUpdateInput) (*domain.Requisition, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	transition := input.Status != nil && *input.Status != req.Status
	editing := input.Subject != nil || input.Description != nil || input.Priority != nil

	// Every leg of the payload is checked against the loaded state before
	// any of them persists. A rejected leg rejects the whole payload, so a
	// combined status-plus-edit request never lands half-applied.
	if transition {
		if err := workflow.CheckTransition(actor, req, *input.Status); err != nil {
			return nil, err
		}
	}
	if input.AssignedTo != nil {
		if err := workflow.CheckAssign(actor, req); err != nil {
			return nil, err
		}
	}
	if editing {
		if err := workflow.CheckEdit(actor, req); err != nil {
			return nil, err
		}
		if input.Subject != nil && strings.TrimSpace(*input.Subject) == "" {
			return nil, apperrors.NewValidationError("subject is required", nil)
		}
		if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", nil)
		}
	}

	if transition {
		if err := s.applyTransition(ctx, actor, req, *input.Status); err != nil {
			return nil, err
		}
	}

	if input.AssignedTo != nil {
		if err := s.requisitions.SetAssignee(ctx, req.ID, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := s.appendChange(ctx, req.ID, domain.ActionAssigned, actor.FullName,
			fmt.Sprintf("Assigned to %s", *input.AssignedTo)); err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type:          events.EventRequisitionAssigned,
			RequisitionID: req.ID,
			Actor:         actor.FullName,
			Payload:       events.AssignedPayload{AssignedTo: *input.AssignedTo},
		})
	}

	if editing {
		if input.Subject != nil {
			req.Subject = strings.TrimSpace(*input.Subject)
		}
		if input.Description != nil {
			req.Description = strings.TrimSpace(*input.Description)
		}
		if input.Priority != nil {
			req.Priority = *input.Priority
		}
		if err := s.requisitions.UpdateFields(ctx, req); err != nil {
			return nil, err
		}
		if err := s.appendChange(ctx, req.ID, domain.ActionUpdated, actor.FullName,
			fmt.Sprintf("Details updated by %s", actor.FullName)); err != nil {
			return nil, err
		}
	}

	s.refreshCache(ctx, req.Type)
	return s.load(ctx, req.ID)
}

// Delete removes a requisition after the engine's deletion check.
func (s *RequisitionService) Delete(ctx context.Context, actor *domain.User, id string) error {
	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := workflow.CheckDelete(actor, req); err != nil {
		return err
	}
	if err := s.requisitions.Delete(ctx, req.ID); err != nil {
		return err
	}
	s.refreshCache(ctx, req.Type)
	s.publish(ctx, events.Event{
		Type:          events.EventRequisitionDeleted,
		RequisitionID: req.ID,
		Actor:         actor.FullName,
	})
	return nil
}

// applyTransition persists an engine-approved status change. Gating has
// already happened in Update; this only runs the compare-and-swap and the
// bookkeeping that follows it.
func (s *RequisitionService) applyTransition(ctx context.Context, actor *domain.User, req *domain.Requisition, to domain.Status) error {
	from := req.Status
	updatedAt, err := s.requisitions.UpdateStatus(ctx, req.ID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperrors.NewInvalidState("requisition was modified concurrently; reload and retry")
		}
		return err
	}
	req.Status = to
	req.UpdatedAt = updatedAt

	if err := s.appendChange(ctx, req.ID, workflow.ActionFor(to), actor.FullName,
		fmt.Sprintf("Status changed from %s to %s", from, to)); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:          events.EventRequisitionStatus,
		RequisitionID: req.ID,
		Actor:         actor.FullName,
		Payload:       events.StatusChangedPayload{OldStatus: from, NewStatus: to},
	})
	return nil
}

func (s *RequisitionService) listAll(ctx context.Context, t *domain.RequisitionType) ([]domain.Requisition, error) {
	if t != nil {
		if cached, ok := s.cache.GetList(ctx, *t); ok {
			return cached, nil
		}
	}
	list, err := s.requisitions.List(ctx, repository.RequisitionFilter{Type: t})
	if err != nil {
		return nil, err
	}
	if t != nil {
		s.cache.SetList(ctx, *t, list)
	}
	return list, nil
}

// refreshCache reloads the full per-type list after a mutation. Wholesale
// replacement avoids partial-update races at the cost of one extra query.
func (s *RequisitionService) refreshCache(ctx context.Context, t domain.RequisitionType) {
	list, err := s.requisitions.List(ctx, repository.RequisitionFilter{Type: &t})
	if err != nil {
		s.logger.Warn("cache refresh failed", zap.String("type", string(t)), zap.Error(err))
		s.cache.Invalidate(ctx, t)
		return
	}
	s.cache.SetList(ctx, t, list)
}

func (s *RequisitionService) load(ctx context.Context, id string) (*domain.Requisition, error) {
	req, err := s.requisitions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("requisition", nil)
		}
		return nil, err
	}
	changelog, err := s.changelog.ListByRequisition(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Changelog = changelog
	return req, nil
}

func (s *RequisitionService) nextDisplayID(ctx context.Context, t domain.RequisitionType) (string, error) {
	prefixes := map[domain.RequisitionType]string{
		domain.TypeIT:             "IT",
		domain.TypeConferenceRoom: "CR",
		domain.TypeLeave:          "LR",
	}
	value, err := s.counters.Next(ctx, fmt.Sprintf("%s_requisition", t))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefixes[t], value), nil
}

// appendChange records a changelog entry. Failures propagate: a lifecycle
// event without its changelog row would break the append-per-transition
// contract, so the caller surfaces the error instead of succeeding silently.
func (s *RequisitionService) appendChange(ctx context.Context, requisitionID string, action domain.ChangeAction, actor, details string) error {
	event := &domain.ChangeEvent{
		RequisitionID: requisitionID,
		Action:        action,
		Actor:         actor,
		Details:       details,
	}
	if err := s.changelog.Append(ctx, event); err != nil {
		s.logger.Error("changelog append failed",
			zap.String("requisition_id", requisitionID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *RequisitionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func partition(list []domain.Requisition, keep func(domain.Requisition) bool) []domain.Requisition {
	out := make([]domain.Requisition, 0, len(list))
	for _, req := range list {
		if keep(req) {
			out = append(out, req)
		}
	}
	return out
}
