package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/requisition-service/internal/domain"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

var (
	requester = &domain.User{ID: "u-requester", Role: domain.RoleEmployee}
	manager   = &domain.User{ID: "u-manager", Role: domain.RoleManager}
	itStaff   = &domain.User{ID: "u-it", Role: domain.RoleIT}
)

func newRequisition(t domain.RequisitionType, status domain.Status) *domain.Requisition {
	return &domain.Requisition{ID: "r-1", RequesterID: requester.ID, Type: t, Status: status}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	return domainErr.Code
}

func TestCheckTransitionHappyPaths(t *testing.T) {
	cases := []struct {
		name  string
		req   *domain.Requisition
		actor *domain.User
		to    domain.Status
	}{
		{"manager approves pending it", newRequisition(domain.TypeIT, domain.StatusPending), manager, domain.StatusApproved},
		{"manager declines pending leave", newRequisition(domain.TypeLeave, domain.StatusPending), manager, domain.StatusDeclined},
		{"it approves pending booking", newRequisition(domain.TypeConferenceRoom, domain.StatusPending), itStaff, domain.StatusApproved},
		{"it starts approved it work", newRequisition(domain.TypeIT, domain.StatusApproved), itStaff, domain.StatusInProgress},
		{"it completes in-progress work", newRequisition(domain.TypeIT, domain.StatusInProgress), itStaff, domain.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, CheckTransition(tc.actor, tc.req, tc.to))
		})
	}
}

func TestCheckTransitionUndefinedEdges(t *testing.T) {
	cases := []struct {
		name string
		req  *domain.Requisition
		to   domain.Status
	}{
		{"pending straight to completed", newRequisition(domain.TypeIT, domain.StatusPending), domain.StatusCompleted},
		{"pending straight to in_progress", newRequisition(domain.TypeIT, domain.StatusPending), domain.StatusInProgress},
		{"leave cannot enter in_progress", newRequisition(domain.TypeLeave, domain.StatusApproved), domain.StatusInProgress},
		{"booking cannot complete", newRequisition(domain.TypeConferenceRoom, domain.StatusApproved), domain.StatusCompleted},
		{"approved back to pending", newRequisition(domain.TypeIT, domain.StatusApproved), domain.StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, "INVALID_STATE", errorCode(t, CheckTransition(itStaff, tc.req, tc.to)))
		})
	}
}

func TestCheckTransitionTerminalStates(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusCompleted, domain.StatusDeclined} {
		req := newRequisition(domain.TypeIT, status)
		err := CheckTransition(itStaff, req, domain.StatusApproved)
		assert.Equal(t, "INVALID_STATE", errorCode(t, err))
	}
}

func TestCheckTransitionRoleRules(t *testing.T) {
	t.Run("employee cannot approve", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusPending)
		other := &domain.User{ID: "u-other", Role: domain.RoleEmployee}
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, CheckTransition(other, req, domain.StatusApproved)))
	})

	t.Run("requester cannot decide own request even as manager", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusPending)
		req.RequesterID = manager.ID
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, CheckTransition(manager, req, domain.StatusApproved)))
	})

	t.Run("manager cannot drive it execution states", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusApproved)
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, CheckTransition(manager, req, domain.StatusInProgress)))
	})

	t.Run("nil actor is rejected", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusPending)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, CheckTransition(nil, req, domain.StatusApproved)))
	})
}

func TestCheckEdit(t *testing.T) {
	t.Run("requester edits while pending", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusPending)
		assert.NoError(t, CheckEdit(requester, req))
	})
	t.Run("non-requester cannot edit", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusPending)
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, CheckEdit(itStaff, req)))
	})
	t.Run("no edits after approval", func(t *testing.T) {
		req := newRequisition(domain.TypeIT, domain.StatusApproved)
		assert.Equal(t, "INVALID_STATE", errorCode(t, CheckEdit(requester, req)))
	})
}

func TestCheckAssign(t *testing.T) {
	t.Run("it assigns it requisition", func(t *testing.T) {
		assert.NoError(t, CheckAssign(itStaff, newRequisition(domain.TypeIT, domain.StatusApproved)))
	})
	t.Run("leave cannot be assigned", func(t *testing.T) {
		err := CheckAssign(itStaff, newRequisition(domain.TypeLeave, domain.StatusApproved))
		assert.Equal(t, "INVALID_STATE", errorCode(t, err))
	})
	t.Run("manager cannot assign", func(t *testing.T) {
		err := CheckAssign(manager, newRequisition(domain.TypeIT, domain.StatusApproved))
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, err))
	})
}

func TestCheckDelete(t *testing.T) {
	t.Run("it deletes anything", func(t *testing.T) {
		assert.NoError(t, CheckDelete(itStaff, newRequisition(domain.TypeIT, domain.StatusCompleted)))
	})
	t.Run("requester deletes own pending", func(t *testing.T) {
		assert.NoError(t, CheckDelete(requester, newRequisition(domain.TypeLeave, domain.StatusPending)))
	})
	t.Run("requester cannot delete after approval", func(t *testing.T) {
		err := CheckDelete(requester, newRequisition(domain.TypeLeave, domain.StatusApproved))
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, err))
	})
	t.Run("manager cannot delete others", func(t *testing.T) {
		err := CheckDelete(manager, newRequisition(domain.TypeIT, domain.StatusPending))
		assert.Equal(t, "FORBIDDEN_TRANSITION", errorCode(t, err))
	})
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, domain.ActionApproved, ActionFor(domain.StatusApproved))
	assert.Equal(t, domain.ActionDeclined, ActionFor(domain.StatusDeclined))
	assert.Equal(t, domain.ActionInProgress, ActionFor(domain.StatusInProgress))
	assert.Equal(t, domain.ActionCompleted, ActionFor(domain.StatusCompleted))
}
