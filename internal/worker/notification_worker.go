package worker

import (
	"github.com/spec-kit/maintenance-portal/internal/service"
)

// StartNotificationWorker registers notification handlers. Delivery runs on
// the pool passed to the notification service.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
