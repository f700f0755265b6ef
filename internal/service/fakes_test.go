package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/repository"
)

// In-memory repository fakes backing the service tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("u-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	if user, err := r.GetByUsername(ctx, login); err == nil {
		return user, nil
	}
	return r.GetByEmail(ctx, login)
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, nil
}

func (r *fakeUserRepo) Search(_ context.Context, query string, limit int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []domain.User
	for _, user := range r.users {
		if !user.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(user.FullName), q) ||
			strings.Contains(strings.ToLower(user.Username), q) {
			out = append(out, *user)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) add(user domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("u-%d", r.seq)
	}
	user.IsActive = true
	clone := user
	r.users[user.ID] = &clone
	return &user
}

type fakeRequisitionRepo struct {
	mu           sync.Mutex
	seq          int
	requisitions map[string]*domain.Requisition
	users        *fakeUserRepo
}

func newFakeRequisitionRepo(users *fakeUserRepo) *fakeRequisitionRepo {
	return &fakeRequisitionRepo{requisitions: map[string]*domain.Requisition{}, users: users}
}

func (r *fakeRequisitionRepo) Create(_ context.Context, req *domain.Requisition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	req.ID = fmt.Sprintf("r-%d", r.seq)
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	clone := cloneRequisition(req)
	r.requisitions[req.ID] = clone
	return nil
}

func (r *fakeRequisitionRepo) GetByID(ctx context.Context, id string) (*domain.Requisition, error) {
	r.mu.Lock()
	req, ok := r.requisitions[id]
	r.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneRequisition(req)
	r.hydrate(ctx, out)
	return out, nil
}

func (r *fakeRequisitionRepo) List(ctx context.Context, filter repository.RequisitionFilter) ([]domain.Requisition, error) {
	r.mu.Lock()
	all := make([]*domain.Requisition, 0, len(r.requisitions))
	for _, req := range r.requisitions {
		all = append(all, cloneRequisition(req))
	}
	r.mu.Unlock()

	var out []domain.Requisition
	for _, req := range all {
		if filter.Type != nil && req.Type != *filter.Type {
			continue
		}
		r.hydrate(ctx, req)
		out = append(out, *req)
	}
	return out, nil
}

func (r *fakeRequisitionRepo) UpdateStatus(_ context.Context, id string, from, to domain.Status) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requisitions[id]
	if !ok || req.Status != from {
		return time.Time{}, repository.ErrStatusConflict
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return req.UpdatedAt, nil
}

func (r *fakeRequisitionRepo) UpdateFields(_ context.Context, req *domain.Requisition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requisitions[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Subject = req.Subject
	stored.Description = req.Description
	stored.Priority = req.Priority
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRequisitionRepo) SetAssignee(_ context.Context, id string, assignee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requisitions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.IT == nil {
		stored.IT = &domain.ITDetails{}
	}
	stored.IT.AssignedTo = &assignee
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRequisitionRepo) SetReplacementConfirmed(_ context.Context, id string, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requisitions[id]
	if !ok || stored.Leave == nil {
		return pgx.ErrNoRows
	}
	value := confirmed
	stored.Leave.ReplacementConfirmed = &value
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRequisitionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requisitions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.requisitions, id)
	return nil
}

func (r *fakeRequisitionRepo) CountByStatus(_ context.Context, t domain.RequisitionType) (map[domain.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.Status]int{}
	for _, req := range r.requisitions {
		if req.Type == t {
			counts[req.Status]++
		}
	}
	return counts, nil
}

func (r *fakeRequisitionRepo) hydrate(ctx context.Context, req *domain.Requisition) {
	if r.users == nil {
		return
	}
	if user, err := r.users.GetByID(ctx, req.RequesterID); err == nil {
		req.RequesterName = user.FullName
		req.RequesterEmail = user.Email
		req.RequesterDesignation = user.Designation
	}
}

func cloneRequisition(req *domain.Requisition) *domain.Requisition {
	clone := *req
	if req.IT != nil {
		it := *req.IT
		clone.IT = &it
	}
	if req.ConferenceRoom != nil {
		cr := *req.ConferenceRoom
		clone.ConferenceRoom = &cr
	}
	if req.Leave != nil {
		lv := *req.Leave
		clone.Leave = &lv
	}
	clone.Changelog = nil
	return &clone
}

type fakeChangelogRepo struct {
	mu        sync.Mutex
	seq       int
	appendErr error
	events    []domain.ChangeEvent
}

func newFakeChangelogRepo() *fakeChangelogRepo {
	return &fakeChangelogRepo{}
}

func (r *fakeChangelogRepo) failAppends(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendErr = err
}

func (r *fakeChangelogRepo) Append(_ context.Context, event *domain.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.seq++
	event.ID = fmt.Sprintf("e-%d", r.seq)
	event.Timestamp = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeChangelogRepo) ListByRequisition(_ context.Context, requisitionID string) ([]domain.ChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChangeEvent
	for _, event := range r.events {
		if event.RequisitionID == requisitionID {
			out = append(out, event)
		}
	}
	return out, nil
}

type fakeCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: map[string]int{}}
}

func (r *fakeCounterRepo) Next(_ context.Context, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name]++
	return r.counters[name], nil
}

type fakeReplacementTokenRepo struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]*domain.ReplacementToken
}

func newFakeReplacementTokenRepo() *fakeReplacementTokenRepo {
	return &fakeReplacementTokenRepo{tokens: map[string]*domain.ReplacementToken{}}
}

func (r *fakeReplacementTokenRepo) Create(_ context.Context, token *domain.ReplacementToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	token.ID = fmt.Sprintf("t-%d", r.seq)
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *fakeReplacementTokenRepo) GetByToken(_ context.Context, token string) (*domain.ReplacementToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeReplacementTokenRepo) Resolve(_ context.Context, token string, status domain.TokenStatus) (*domain.ReplacementToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok || stored.Status != domain.TokenPending || stored.Expired(time.Now()) {
		return nil, repository.ErrTokenConsumed
	}
	now := time.Now()
	stored.Status = status
	stored.ResolvedAt = &now
	clone := *stored
	return &clone, nil
}

func (r *fakeReplacementTokenRepo) ListPendingByUser(_ context.Context, userID string) ([]domain.ReplacementToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ReplacementToken
	now := time.Now()
	for _, token := range r.tokens {
		if token.ReplacementUserID == userID && token.Status == domain.TokenPending && !token.Expired(now) {
			out = append(out, *token)
		}
	}
	return out, nil
}

type fakeAuthTokenRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]*repository.AuthTokenRecord
}

func newFakeAuthTokenRepo() *fakeAuthTokenRepo {
	return &fakeAuthTokenRepo{records: map[string]*repository.AuthTokenRecord{}}
}

func (r *fakeAuthTokenRepo) Create(_ context.Context, record *repository.AuthTokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	record.ID = fmt.Sprintf("a-%d", r.seq)
	record.IssuedAt = time.Now()
	record.IsValid = true
	clone := *record
	r.records[record.Token] = &clone
	return nil
}

func (r *fakeAuthTokenRepo) GetValid(_ context.Context, token string) (*repository.AuthTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[token]
	if !ok || !record.IsValid || time.Now().After(record.ExpiresAt) {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (r *fakeAuthTokenRepo) Invalidate(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[token]; ok {
		record.IsValid = false
	}
	return nil
}
