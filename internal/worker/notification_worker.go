package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker subscribes notification routing to dispatcher. A
// nil notifier delivers to the log.
func StartNotificationWorker(dispatcher events.Dispatcher, store repository.Store, notifier service.Notifier, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications := service.NewNotificationService(dispatcher, store, notifier, logger)
	notifications.RegisterHandlers()
	logger.Info("notification worker started")
	return notifications
}
