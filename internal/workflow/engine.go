// Package workflow holds the requisition lifecycle engine: the transition
// graph per requisition type and the role/ownership rules gating each edge.
// The engine is pure; callers persist the change and append the changelog
// entry only after a check passes.
package workflow

import (
	"fmt"

	"github.com/spec-kit/requisition-service/internal/domain"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// transitionsFor returns the edges defined from each status for the given
// requisition type. in_progress is reachable only for IT requisitions;
// conference-room and leave requisitions end at approved or declined as far
// as this engine is concerned (completion for those types is an external
// business process, never driven here).
func transitionsFor(t domain.RequisitionType) map[domain.Status][]domain.Status {
	switch t {
	case domain.TypeIT:
		return map[domain.Status][]domain.Status{
			domain.StatusPending:    {domain.StatusApproved, domain.StatusDeclined},
			domain.StatusApproved:   {domain.StatusInProgress},
			domain.StatusInProgress: {domain.StatusCompleted},
			domain.StatusCompleted:  {},
			domain.StatusDeclined:   {},
		}
	case domain.TypeConferenceRoom, domain.TypeLeave:
		return map[domain.Status][]domain.Status{
			domain.StatusPending:  {domain.StatusApproved, domain.StatusDeclined},
			domain.StatusApproved: {},
			domain.StatusDeclined: {},
		}
	}
	return map[domain.Status][]domain.Status{}
}

func edgeDefined(t domain.RequisitionType, from, to domain.Status) bool {
	for _, candidate := range transitionsFor(t)[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ActionFor maps a target status to the changelog action recorded for the
// transition.
func ActionFor(to domain.Status) domain.ChangeAction {
	switch to {
	case domain.StatusApproved:
		return domain.ActionApproved
	case domain.StatusDeclined:
		return domain.ActionDeclined
	case domain.StatusInProgress:
		return domain.ActionInProgress
	case domain.StatusCompleted:
		return domain.ActionCompleted
	}
	return domain.ActionUpdated
}

// CheckTransition validates a status change attempt. It returns an
// InvalidState error when the edge does not exist from the current status,
// and a ForbiddenTransition error when the actor fails the role or
// ownership rule for the edge. A nil return means the transition may be
// applied; a rejected attempt is terminal for that call and causes no
// mutation.
func CheckTransition(actor *domain.User, req *domain.Requisition, to domain.Status) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authenticated user required")
	}
	if domain.Terminal(req.Status) {
		return apperrors.NewInvalidState(fmt.Sprintf("requisition is %s; no further transitions permitted", req.Status))
	}
	if !edgeDefined(req.Type, req.Status, to) {
		return apperrors.NewInvalidState(fmt.Sprintf("invalid status transition from %s to %s", req.Status, to))
	}

	switch to {
	case domain.StatusApproved, domain.StatusDeclined:
		if !actor.CanApproveRequests() {
			return apperrors.NewForbiddenTransition("manager or it role required")
		}
		if actor.ID == req.RequesterID {
			return apperrors.NewForbiddenTransition("requesters cannot decide their own requisitions")
		}
	case domain.StatusInProgress, domain.StatusCompleted:
		if !actor.HasRole(domain.RoleIT) {
			return apperrors.NewForbiddenTransition("it role required")
		}
	}
	return nil
}

// CheckEdit validates a field edit: only the requester may edit, and only
// while the requisition is still pending.
func CheckEdit(actor *domain.User, req *domain.Requisition) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authenticated user required")
	}
	if actor.ID != req.RequesterID {
		return apperrors.NewForbiddenTransition("only the requester may edit")
	}
	if req.Status != domain.StatusPending {
		return apperrors.NewInvalidState("editing is only permitted while pending")
	}
	return nil
}

// CheckAssign validates assigning an IT requisition to a handler.
func CheckAssign(actor *domain.User, req *domain.Requisition) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authenticated user required")
	}
	if req.Type != domain.TypeIT {
		return apperrors.NewInvalidState("only it requisitions can be assigned")
	}
	if !actor.HasRole(domain.RoleIT) {
		return apperrors.NewForbiddenTransition("it role required")
	}
	return nil
}

// CheckDelete validates deletion: it staff may delete any requisition,
// requesters only their own while still pending.
func CheckDelete(actor *domain.User, req *domain.Requisition) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authenticated user required")
	}
	if actor.HasRole(domain.RoleIT) {
		return nil
	}
	if actor.ID == req.RequesterID && req.Status == domain.StatusPending {
		return nil
	}
	return apperrors.NewForbiddenTransition("insufficient permissions to delete this requisition")
}
