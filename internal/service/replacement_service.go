package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/events"
	"github.com/spec-kit/requisition-service/internal/repository"
	"github.com/spec-kit/requisition-service/internal/store"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// systemActor names changelog entries written by the service itself rather
// than a signed-in user.
const systemActor = "System"

// ReplacementService implements the replacement confirmation handshake for
// leave requisitions: minting the single-use token, serving its preview, and
// resolving it exactly once.
type ReplacementService struct {
	tokens       repository.ReplacementTokenRepository
	requisitions repository.RequisitionRepository
	changelog    repository.ChangelogRepository
	users        repository.UserRepository
	cache        *store.RequisitionCache
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	ttl          time.Duration
}

// ReplacementDependencies bundles collaborators for the service.
type ReplacementDependencies struct {
	TokenRepo       repository.ReplacementTokenRepository
	RequisitionRepo repository.RequisitionRepository
	ChangelogRepo   repository.ChangelogRepository
	UserRepo        repository.UserRepository
	Cache           *store.RequisitionCache
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	TokenTTL        time.Duration
}

// NewReplacementService constructs the service.
func NewReplacementService(deps ReplacementDependencies) *ReplacementService {
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &ReplacementService{
		tokens:       deps.TokenRepo,
		requisitions: deps.RequisitionRepo,
		changelog:    deps.ChangelogRepo,
		users:        deps.UserRepo,
		cache:        deps.Cache,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		ttl:          ttl,
	}
}

// Issue mints a confirmation token for the requisition's named replacement
// and announces it so the notification path can deliver the link.
func (s *ReplacementService) Issue(ctx context.Context, req *domain.Requisition) (*domain.ReplacementToken, error) {
	if req.Type != domain.TypeLeave || req.Leave == nil || req.Leave.ReplacementUserID == nil {
		return nil, apperrors.NewValidationError("requisition does not name a replacement", nil)
	}
	token := &domain.ReplacementToken{
		Token:             uuid.NewString(),
		RequisitionID:     req.ID,
		ReplacementUserID: *req.Leave.ReplacementUserID,
		Status:            domain.TokenPending,
		ExpiresAt:         time.Now().Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:          events.EventReplacementRequested,
		RequisitionID: req.ID,
		Actor:         req.RequesterName,
		Payload: events.ReplacementRequestedPayload{
			Token:             token.Token,
			ReplacementUserID: token.ReplacementUserID,
			ReplacementName:   req.Leave.ReplacementName,
		},
	})
	return token, nil
}

// Fetch returns the confirmation preview for a token. Unknown, expired, and
// already-resolved tokens produce the same invalid-token error so the
// endpoint never reveals which case applies.
func (s *ReplacementService) Fetch(ctx context.Context, token string) (*domain.PendingConfirmation, error) {
	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenInvalid()
		}
		return nil, err
	}
	if record.Status != domain.TokenPending || record.Expired(time.Now()) {
		return nil, apperrors.NewTokenInvalid()
	}
	req, err := s.requisitions.GetByID(ctx, record.RequisitionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenInvalid()
		}
		return nil, err
	}
	return &domain.PendingConfirmation{Token: record.Token, Requisition: *req}, nil
}

// Resolve consumes the token with the replacement's decision. The repository
// compare-and-swap guarantees single use: a second resolution attempt, or one
// racing the first, surfaces as an invalid token and changes nothing. A
// decline arriving after approval resets the requisition to pending so a
// manager re-decides with the staffing gap known.
func (s *ReplacementService) Resolve(ctx context.Context, token string, confirmed bool) (*domain.Requisition, error) {
	status := domain.TokenDeclined
	if confirmed {
		status = domain.TokenConfirmed
	}
	record, err := s.tokens.Resolve(ctx, token, status)
	if err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			return nil, apperrors.NewTokenInvalid()
		}
		return nil, err
	}

	req, err := s.requisitions.GetByID(ctx, record.RequisitionID)
	if err != nil {
		return nil, err
	}
	if err := s.requisitions.SetReplacementConfirmed(ctx, req.ID, confirmed); err != nil {
		return nil, err
	}

	replacementName := s.replacementName(ctx, record.ReplacementUserID, req)
	action := domain.ActionReplacementDeclined
	details := "Replacement request declined by " + replacementName
	if confirmed {
		action = domain.ActionReplacementConfirmed
		details = "Replacement request confirmed by " + replacementName
	}
	if err := s.appendChange(ctx, req.ID, action, replacementName, details); err != nil {
		return nil, err
	}

	if !confirmed && req.Status == domain.StatusApproved {
		if _, err := s.requisitions.UpdateStatus(ctx, req.ID, domain.StatusApproved, domain.StatusPending); err != nil {
			if !errors.Is(err, repository.ErrStatusConflict) {
				return nil, err
			}
		} else if err := s.appendChange(ctx, req.ID, domain.ActionStatusReset, systemActor,
			"Status reset to pending due to replacement decline"); err != nil {
			return nil, err
		}
	}

	s.cache.Invalidate(ctx, domain.TypeLeave)
	s.publish(ctx, events.Event{
		Type:          events.EventReplacementResolved,
		RequisitionID: req.ID,
		Actor:         replacementName,
		Payload: events.ReplacementResolvedPayload{
			Confirmed:       confirmed,
			ReplacementName: replacementName,
		},
	})
	return s.requisitions.GetByID(ctx, req.ID)
}

// ListPendingForUser returns outstanding confirmations addressed to the
// user, fetched fresh on every call so a resolved token disappears at once.
func (s *ReplacementService) ListPendingForUser(ctx context.Context, userID string) ([]domain.PendingConfirmation, error) {
	tokens, err := s.tokens.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]domain.PendingConfirmation, 0, len(tokens))
	for _, token := range tokens {
		req, err := s.requisitions.GetByID(ctx, token.RequisitionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}
		result = append(result, domain.PendingConfirmation{Token: token.Token, Requisition: *req})
	}
	return result, nil
}

func (s *ReplacementService) replacementName(ctx context.Context, userID string, req *domain.Requisition) string {
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		return user.FullName
	}
	if req.Leave != nil && req.Leave.ReplacementName != "" {
		return req.Leave.ReplacementName
	}
	return "Replacement"
}

func (s *ReplacementService) appendChange(ctx context.Context, requisitionID string, action domain.ChangeAction, actor, details string) error {
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

func (s *ReplacementService) publish(ctx context.Context, event events.Event) {
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
