package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/pkg/jobs"
)

// Webhook actions.
const (
	WebhookCreate   = "crear"
	WebhookUpdate   = "actualizar"
	WebhookFinalize = "finalizar"
)

const webhookJobType = "webhook"

// WebhookPayload is posted to the workflow automation endpoint.
type WebhookPayload struct {
	Accion  string           `json:"accion"`
	Ayuda   models.AidRecord `json:"ayuda"`
	Usuario *models.User     `json:"usuario,omitempty"`
}

// WebhookService notifies the workflow endpoint after record writes. Calls
// are queued, never awaited and never retried.
type WebhookService struct {
	url     string
	http    *resty.Client
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewWebhookService constructs the dispatcher. An empty url disables it.
func NewWebhookService(url string, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &WebhookService{
		url: url,
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetLogger(logger.Sugar()).
			SetHeader("Content-Type", "application/json"),
		metrics: metrics,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("webhook", s.handle, jobs.QueueConfig{
		Workers:    2,
		BufferSize: 64,
		JobTimeout: timeout,
		Logger:     logger,
	})
	return s
}

// Enabled reports whether a webhook url is configured.
func (s *WebhookService) Enabled() bool {
	return s != nil && s.url != ""
}

// Start launches the dispatch workers.
func (s *WebhookService) Start(ctx context.Context) {
	if s.Enabled() {
		s.queue.Start(ctx)
	}
}

// Stop halts the dispatch workers. Queued notifications are dropped.
func (s *WebhookService) Stop() {
	if s.Enabled() {
		s.queue.Stop()
	}
}

// Notify queues a notification for action on record by user.
func (s *WebhookService) Notify(action string, record models.AidRecord, user *models.User) {
	if !s.Enabled() {
		return
	}
	payload := WebhookPayload{Accion: action, Ayuda: record, Usuario: user}
	if err := s.queue.Submit(jobs.Job{Type: webhookJobType, Payload: payload}); err != nil {
		s.metrics.ObserveWebhook("dropped")
		s.logger.Warn("webhook not queued", zap.String("accion", action), zap.Error(err))
	}
}

func (s *WebhookService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(WebhookPayload)
	if !ok {
		return fmt.Errorf("unexpected webhook payload %T", job.Payload)
	}
	resp, err := s.http.R().SetContext(ctx).SetBody(payload).Post(s.url)
	if err != nil {
		s.metrics.ObserveWebhook("failed")
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		s.metrics.ObserveWebhook("failed")
		return fmt.Errorf("webhook answered %d", resp.StatusCode())
	}
	s.metrics.ObserveWebhook("sent")
	return nil
}
