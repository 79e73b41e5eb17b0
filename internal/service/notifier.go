package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/pkg/config"
	"github.com/noah-isme/campus-lab-api/pkg/jobs"
)

// DispatchJobType labels queue jobs carrying a NotificationMessage.
const DispatchJobType = "notification.dispatch"

// NotificationMessage is the payload handed to external notifiers.
type NotificationMessage struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	CampusID  string                  `json:"campusId"`
	EntityID  string                  `json:"entityId"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"createdAt"`
}

func messageFor(n models.Notification) NotificationMessage {
	return NotificationMessage{
		ID:        n.ID,
		Type:      n.Type,
		CampusID:  n.CampusID,
		EntityID:  n.EntityID,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

// Notifier delivers a notification to an external channel.
type Notifier interface {
	Dispatch(ctx context.Context, msg NotificationMessage) error
}

// NewNotifier picks the webhook notifier when a URL is configured and the log notifier otherwise.
func NewNotifier(cfg config.NotifierConfig, logger *zap.Logger) Notifier {
	if cfg.WebhookURL == "" {
		return NewLogNotifier(logger)
	}
	return NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout, logger)
}

// WebhookNotifier posts notifications as JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier constructs a webhook notifier bounded by timeout.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}, logger: logger}
}

// Dispatch sends msg and treats any non-2xx response as a failure.
func (n *WebhookNotifier) Dispatch(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	n.logger.Debug("notification delivered", zap.String("notification_id", msg.ID), zap.String("type", string(msg.Type)))
	return nil
}

// LogNotifier only records notifications in the application log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Dispatch logs msg and never fails.
func (n *LogNotifier) Dispatch(_ context.Context, msg NotificationMessage) error {
	n.logger.Info("notification",
		zap.String("notification_id", msg.ID),
		zap.String("type", string(msg.Type)),
		zap.String("campus_id", msg.CampusID),
		zap.String("entity_id", msg.EntityID),
		zap.String("message", msg.Message),
	)
	return nil
}

// NewDispatchHandler adapts notifier into a queue handler. Failures are logged and returned so the queue retries.
func NewDispatchHandler(notifier Notifier, metrics *MetricsService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(NotificationMessage)
		if !ok {
			logger.Error("unexpected dispatch payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return nil
		}
		err := notifier.Dispatch(ctx, msg)
		metrics.RecordDispatch(string(msg.Type), err)
		if err != nil {
			logger.Warn("notification dispatch failed",
				zap.String("notification_id", msg.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
		}
		return err
	}
}
