package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/requisition-service/internal/config"
	"github.com/spec-kit/requisition-service/internal/events"
)

// NotificationService reacts to domain events with out-of-band delivery.
// Email and webhook delivery are stubbed as structured log lines; the
// confirmation link for replacement requests is built here so the delivery
// channel only ever sees a ready-to-send URL.
type NotificationService struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{cfg: cfg, logger: logger}
}

// HandleRequisitionCreated logs a creation notification.
func (s *NotificationService) HandleRequisitionCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequisitionCreatedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notification: requisition created",
		zap.String("requisition_id", event.RequisitionID),
		zap.String("display_id", payload.DisplayID),
		zap.String("requisition_type", string(payload.Type)),
		zap.String("actor", event.Actor),
	)
	return nil
}

// HandleStatusChanged logs a lifecycle notification.
func (s *NotificationService) HandleStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notification: requisition status changed",
		zap.String("requisition_id", event.RequisitionID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
		zap.String("actor", event.Actor),
	)
	return nil
}

// HandleAssigned logs an assignment notification.
func (s *NotificationService) HandleAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notification: requisition assigned",
		zap.String("requisition_id", event.RequisitionID),
		zap.String("assigned_to", payload.AssignedTo),
	)
	return nil
}

// HandleReplacementRequested delivers the confirmation link to the named
// replacement. Delivery is a stub: the link is logged instead of mailed.
func (s *NotificationService) HandleReplacementRequested(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplacementRequestedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notification: replacement confirmation requested",
		zap.String("requisition_id", event.RequisitionID),
		zap.String("replacement_user_id", payload.ReplacementUserID),
		zap.String("replacement_name", payload.ReplacementName),
		zap.String("confirm_url", s.ConfirmLink(payload.Token)),
		zap.String("email_from", s.cfg.EmailFrom),
	)
	return nil
}

// HandleReplacementResolved logs the replacement's decision.
func (s *NotificationService) HandleReplacementResolved(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplacementResolvedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notification: replacement request resolved",
		zap.String("requisition_id", event.RequisitionID),
		zap.Bool("confirmed", payload.Confirmed),
		zap.String("replacement_name", payload.ReplacementName),
	)
	if s.cfg.WebhookURL != "" {
		s.logger.Info("notification: webhook delivery queued",
			zap.String("webhook_url", s.cfg.WebhookURL),
			zap.String("requisition_id", event.RequisitionID),
		)
	}
	return nil
}

// ConfirmLink builds the public confirmation URL for a token.
func (s *NotificationService) ConfirmLink(token string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.ConfirmURL, "/"), token)
}
