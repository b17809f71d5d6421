package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/config"
	"github.com/spec-kit/exam-access-service/internal/events"
)

// AuditService records token lifecycle events for the audit trail.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
	a.dispatcher.Subscribe(events.EventTokenValidated, a.handleTokenValidated)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
	a.dispatcher.Subscribe(events.EventTokenInvalidated, a.handleTokenInvalidated)
	a.dispatcher.Subscribe(events.EventTokensSwept, a.handleTokensSwept)
}

func (a *AuditService) handleTokenIssued(ctx context.Context, event events.Event) error {
	a.logger.Info("TokenIssued", zap.String("exam_id", event.ExamID), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) handleTokenValidated(ctx context.Context, event events.Event) error {
	a.logger.Info("TokenValidated", zap.String("exam_id", event.ExamID), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) handleTokenRejected(ctx context.Context, event events.Event) error {
	a.logger.Warn("TokenRejected", zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleTokenInvalidated(ctx context.Context, event events.Event) error {
	a.logger.Info("TokenInvalidated", zap.String("exam_id", event.ExamID), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) handleTokensSwept(ctx context.Context, event events.Event) error {
	a.logger.Info("TokensSwept", zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
