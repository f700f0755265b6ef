package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/events"
	"github.com/spec-kit/requisition-service/internal/store"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

type testEnv struct {
	users        *fakeUserRepo
	requisitions *fakeRequisitionRepo
	changelog    *fakeChangelogRepo
	tokens       *fakeReplacementTokenRepo
	service      *RequisitionService
	replacements *ReplacementService

	employee *domain.User
	manager  *domain.User
	itStaff  *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserRepo()
	requisitions := newFakeRequisitionRepo(users)
	changelog := newFakeChangelogRepo()
	tokens := newFakeReplacementTokenRepo()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	cache := store.NewRequisitionCache(nil, logger, time.Minute)

	replacements := NewReplacementService(ReplacementDependencies{
		TokenRepo:       tokens,
		RequisitionRepo: requisitions,
		ChangelogRepo:   changelog,
		UserRepo:        users,
		Cache:           cache,
		Dispatcher:      dispatcher,
		Logger:          logger,
		TokenTTL:        time.Hour,
	})
	svc := NewRequisitionService(RequisitionDependencies{
		RequisitionRepo: requisitions,
		ChangelogRepo:   changelog,
		CounterRepo:     newFakeCounterRepo(),
		UserRepo:        users,
		Replacements:    replacements,
		Cache:           cache,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})

	env := &testEnv{
		users:        users,
		requisitions: requisitions,
		changelog:    changelog,
		tokens:       tokens,
		service:      svc,
		replacements: replacements,
	}
	env.employee = users.add(domain.User{Username: "alice", Email: "alice@example.com", FullName: "Alice Hart", Role: domain.RoleEmployee})
	env.manager = users.add(domain.User{Username: "mark", Email: "mark@example.com", FullName: "Mark Lane", Role: domain.RoleManager})
	env.itStaff = users.add(domain.User{Username: "ivy", Email: "ivy@example.com", FullName: "Ivy Chen", Role: domain.RoleIT})
	return env
}

func itInput(subject string) RequisitionCreateInput {
	return RequisitionCreateInput{
		Type:    domain.TypeIT,
		Subject: subject,
		IT:      &ITInput{Category: "hardware"},
	}
}

func leaveInput(replacementID *string) RequisitionCreateInput {
	return RequisitionCreateInput{
		Type:    domain.TypeLeave,
		Subject: "Annual leave",
		Leave: &LeaveInput{
			LeaveType:         "vacation",
			StartDate:         time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
			EndDate:           time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC),
			ReplacementUserID: replacementID,
		},
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.ToDomainError(err).Code)
}

func TestCreateITRequisition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Laptop replacement"))
	require.NoError(t, err)

	assert.Equal(t, "IT-0001", req.DisplayID)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, domain.PriorityMedium, req.Priority)
	assert.Equal(t, env.employee.FullName, req.RequesterName)
	require.NotNil(t, req.IT)
	assert.Equal(t, "hardware", req.IT.Category)

	require.Len(t, req.Changelog, 1)
	assert.Equal(t, domain.ActionCreated, req.Changelog[0].Action)
	assert.Equal(t, "Requisition created by Alice Hart", req.Changelog[0].Details)
}

func TestDisplayIDSequencesPerType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.Create(ctx, env.employee, itInput("First"))
	require.NoError(t, err)
	second, err := env.service.Create(ctx, env.employee, itInput("Second"))
	require.NoError(t, err)
	leave, err := env.service.Create(ctx, env.employee, leaveInput(nil))
	require.NoError(t, err)

	assert.Equal(t, "IT-0001", first.DisplayID)
	assert.Equal(t, "IT-0002", second.DisplayID)
	assert.Equal(t, "LR-0001", leave.DisplayID)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("booking must start before it ends", func(t *testing.T) {
		start := time.Date(2024, time.June, 3, 14, 0, 0, 0, time.UTC)
		_, err := env.service.Create(ctx, env.employee, RequisitionCreateInput{
			Type:    domain.TypeConferenceRoom,
			Subject: "Sprint review",
			ConferenceRoom: &ConferenceRoomInput{
				RoomName:       "Aurora",
				StartDatetime:  start,
				EndDatetime:    start.Add(-time.Hour),
				AttendeesCount: 6,
			},
		})
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("weekend-only leave is rejected", func(t *testing.T) {
		input := leaveInput(nil)
		input.Leave.StartDate = time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC)
		input.Leave.EndDate = time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC)
		_, err := env.service.Create(ctx, env.employee, input)
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("missing subject", func(t *testing.T) {
		input := itInput("   ")
		_, err := env.service.Create(ctx, env.employee, input)
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("details must match type", func(t *testing.T) {
		_, err := env.service.Create(ctx, env.employee, RequisitionCreateInput{
			Type:    domain.TypeIT,
			Subject: "No details",
		})
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("unknown replacement user", func(t *testing.T) {
		missing := "u-999"
		_, err := env.service.Create(ctx, env.employee, leaveInput(&missing))
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})
}

func TestCreateLeaveComputesBusinessDays(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.service.Create(context.Background(), env.employee, leaveInput(nil))
	require.NoError(t, err)
	require.NotNil(t, req.Leave)
	assert.Equal(t, 5, req.Leave.TotalDays)
	assert.Nil(t, req.Leave.ReplacementConfirmed)
}

func TestCreateLeaveWithReplacementIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, leaveInput(&env.manager.ID))
	require.NoError(t, err)

	require.NotNil(t, req.Leave.ReplacementUserID)
	assert.Equal(t, env.manager.FullName, req.Leave.ReplacementName)
	assert.Nil(t, req.Leave.ReplacementConfirmed)

	pending, err := env.replacements.ListPendingForUser(ctx, env.manager.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].Requisition.ID)
}

func TestITLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Broken monitor"))
	require.NoError(t, err)

	step := func(actor *domain.User, to domain.Status) *domain.Requisition {
		t.Helper()
		updated, err := env.service.Update(ctx, actor, req.ID, RequisitionUpdateInput{Status: &to})
		require.NoError(t, err)
		return updated
	}

	approved := step(env.manager, domain.StatusApproved)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	inProgress := step(env.itStaff, domain.StatusInProgress)
	assert.Equal(t, domain.StatusInProgress, inProgress.Status)

	completed := step(env.itStaff, domain.StatusCompleted)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	require.Len(t, completed.Changelog, 4)
	assert.Equal(t, domain.ActionCreated, completed.Changelog[0].Action)
	assert.Equal(t, domain.ActionApproved, completed.Changelog[1].Action)
	assert.Equal(t, domain.ActionInProgress, completed.Changelog[2].Action)
	assert.Equal(t, domain.ActionCompleted, completed.Changelog[3].Action)
	assert.Equal(t, "Status changed from pending to approved", completed.Changelog[1].Details)
	assert.Equal(t, env.manager.FullName, completed.Changelog[1].Actor)

	status := domain.StatusApproved
	_, err = env.service.Update(ctx, env.itStaff, req.ID, RequisitionUpdateInput{Status: &status})
	assertErrorCode(t, err, "INVALID_STATE")
}

func TestSelfApprovalForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.manager, itInput("Own request"))
	require.NoError(t, err)

	status := domain.StatusApproved
	_, err = env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{Status: &status})
	assertErrorCode(t, err, "FORBIDDEN_TRANSITION")
}

func TestEmployeeCannotTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Request"))
	require.NoError(t, err)

	status := domain.StatusApproved
	other := env.users.add(domain.User{Username: "bob", Email: "bob@example.com", FullName: "Bob Reed", Role: domain.RoleEmployee})
	_, err = env.service.Update(ctx, other, req.ID, RequisitionUpdateInput{Status: &status})
	assertErrorCode(t, err, "FORBIDDEN_TRANSITION")
}

func TestEditRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Old subject"))
	require.NoError(t, err)

	subject := "New subject"
	updated, err := env.service.Update(ctx, env.employee, req.ID, RequisitionUpdateInput{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, "New subject", updated.Subject)
	require.Len(t, updated.Changelog, 2)
	assert.Equal(t, domain.ActionUpdated, updated.Changelog[1].Action)

	t.Run("only requester may edit", func(t *testing.T) {
		_, err := env.service.Update(ctx, env.itStaff, req.ID, RequisitionUpdateInput{Subject: &subject})
		assertErrorCode(t, err, "FORBIDDEN_TRANSITION")
	})

	t.Run("no edits once decided", func(t *testing.T) {
		status := domain.StatusApproved
		_, err := env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{Status: &status})
		require.NoError(t, err)

		_, err = env.service.Update(ctx, env.employee, req.ID, RequisitionUpdateInput{Subject: &subject})
		assertErrorCode(t, err, "INVALID_STATE")
	})
}

func TestCombinedUpdateAppliesAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Keyboard"))
	require.NoError(t, err)

	t.Run("rejected edit leg blocks the transition", func(t *testing.T) {
		status := domain.StatusApproved
		subject := "Rewritten on approval"
		_, err := env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{Status: &status, Subject: &subject})
		assertErrorCode(t, err, "FORBIDDEN_TRANSITION")

		stored, err := env.requisitions.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.Equal(t, "Keyboard", stored.Subject)
	})

	t.Run("rejected transition leg blocks the edit", func(t *testing.T) {
		status := domain.StatusApproved
		subject := "Still mine"
		_, err := env.service.Update(ctx, env.employee, req.ID, RequisitionUpdateInput{Status: &status, Subject: &subject})
		assertErrorCode(t, err, "FORBIDDEN_TRANSITION")

		stored, err := env.requisitions.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, "Keyboard", stored.Subject)
	})

	entries, err := env.changelog.ListByRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
}

func TestChangelogAppendFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Docking station"))
	require.NoError(t, err)

	env.changelog.failAppends(errors.New("insert failed"))
	status := domain.StatusApproved
	_, err = env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{Status: &status})
	require.Error(t, err)
	env.changelog.failAppends(nil)

	entries, err := env.changelog.ListByRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
}

func TestAssignITRequisition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("VPN access"))
	require.NoError(t, err)

	assignee := env.itStaff.FullName
	updated, err := env.service.Update(ctx, env.itStaff, req.ID, RequisitionUpdateInput{AssignedTo: &assignee})
	require.NoError(t, err)
	require.NotNil(t, updated.IT.AssignedTo)
	assert.Equal(t, assignee, *updated.IT.AssignedTo)
	require.Len(t, updated.Changelog, 2)
	assert.Equal(t, domain.ActionAssigned, updated.Changelog[1].Action)

	t.Run("manager cannot assign", func(t *testing.T) {
		_, err := env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{AssignedTo: &assignee})
		assertErrorCode(t, err, "FORBIDDEN_TRANSITION")
	})
}

func TestDeleteRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("requester deletes own pending", func(t *testing.T) {
		req, err := env.service.Create(ctx, env.employee, itInput("Short lived"))
		require.NoError(t, err)
		require.NoError(t, env.service.Delete(ctx, env.employee, req.ID))
		_, err = env.service.Get(ctx, env.itStaff, req.ID)
		assertErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("requester cannot delete after approval", func(t *testing.T) {
		req, err := env.service.Create(ctx, env.employee, itInput("Approved one"))
		require.NoError(t, err)
		status := domain.StatusApproved
		_, err = env.service.Update(ctx, env.manager, req.ID, RequisitionUpdateInput{Status: &status})
		require.NoError(t, err)

		err = env.service.Delete(ctx, env.employee, req.ID)
		assertErrorCode(t, err, "FORBIDDEN_TRANSITION")

		require.NoError(t, env.service.Delete(ctx, env.itStaff, req.ID))
	})
}

func TestGetVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.Create(ctx, env.employee, itInput("Private"))
	require.NoError(t, err)

	other := env.users.add(domain.User{Username: "carol", Email: "carol@example.com", FullName: "Carol Diaz", Role: domain.RoleEmployee})
	_, err = env.service.Get(ctx, other, req.ID)
	assertErrorCode(t, err, "FORBIDDEN")

	got, err := env.service.Get(ctx, env.manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
}

func TestListByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine, err := env.service.Create(ctx, env.employee, itInput("Mine"))
	require.NoError(t, err)
	managers, err := env.service.Create(ctx, env.manager, itInput("Managers own"))
	require.NoError(t, err)
	decided, err := env.service.Create(ctx, env.employee, itInput("Decided"))
	require.NoError(t, err)
	status := domain.StatusApproved
	_, err = env.service.Update(ctx, env.manager, decided.ID, RequisitionUpdateInput{Status: &status})
	require.NoError(t, err)

	unsettledLeave, err := env.service.Create(ctx, env.employee, leaveInput(&env.itStaff.ID))
	require.NoError(t, err)

	t.Run("employee sees only own", func(t *testing.T) {
		list, err := env.service.List(ctx, env.employee, nil)
		require.NoError(t, err)
		ids := requisitionIDs(list)
		assert.ElementsMatch(t, []string{mine.ID, decided.ID, unsettledLeave.ID}, ids)
	})

	t.Run("manager sees others with pending first and unsettled leave hidden", func(t *testing.T) {
		list, err := env.service.List(ctx, env.manager, nil)
		require.NoError(t, err)
		ids := requisitionIDs(list)
		assert.NotContains(t, ids, managers.ID)
		assert.NotContains(t, ids, unsettledLeave.ID)
		require.Len(t, list, 2)
		assert.Equal(t, domain.StatusPending, list[0].Status)
		assert.Equal(t, domain.StatusApproved, list[1].Status)
	})

	t.Run("it sees everything with others first", func(t *testing.T) {
		list, err := env.service.List(ctx, env.itStaff, nil)
		require.NoError(t, err)
		assert.Len(t, list, 4)
		for _, req := range list {
			assert.NotEqual(t, env.itStaff.ID, req.RequesterID)
		}
	})

	t.Run("type filter applies", func(t *testing.T) {
		leaveType := domain.TypeLeave
		list, err := env.service.List(ctx, env.employee, &leaveType)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, unsettledLeave.ID, list[0].ID)
	})
}

func requisitionIDs(list []domain.Requisition) []string {
	ids := make([]string, 0, len(list))
	for _, req := range list {
		ids = append(ids, req.ID)
	}
	return ids
}
