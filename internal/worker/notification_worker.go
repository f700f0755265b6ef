package worker

import (
	"github.com/spec-kit/requisition-service/internal/events"
	"github.com/spec-kit/requisition-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher. Delivery runs in-process on the publishing goroutine.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService) {
	if dispatcher == nil || notifications == nil {
		return
	}
	dispatcher.Subscribe(events.EventRequisitionCreated, notifications.HandleRequisitionCreated)
	dispatcher.Subscribe(events.EventRequisitionStatus, notifications.HandleStatusChanged)
	dispatcher.Subscribe(events.EventRequisitionAssigned, notifications.HandleAssigned)
	dispatcher.Subscribe(events.EventReplacementRequested, notifications.HandleReplacementRequested)
	dispatcher.Subscribe(events.EventReplacementResolved, notifications.HandleReplacementResolved)
}
