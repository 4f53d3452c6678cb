package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/events"
)

// AuditService writes session lifecycle events to the audit log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSignedIn, a.handle)
	a.dispatcher.Subscribe(events.EventSignedOut, a.handle)
	a.dispatcher.Subscribe(events.EventSignInThrottled, a.handleThrottled)
	a.dispatcher.Subscribe(events.EventPasswordReset, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("user_id", event.UserID),
		zap.String("ip", event.IP),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}

func (a *AuditService) handleThrottled(_ context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type),
		zap.String("identifier", event.Identifier),
		zap.String("ip", event.IP),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
