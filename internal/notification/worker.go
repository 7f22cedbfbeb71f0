package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coop-door-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title   string           `json:"title"`
	Body    string           `json:"body"`
	Kind    model.AlertKind  `json:"kind"`
	State   model.DoorState  `json:"state"`
	Action  model.DoorAction `json:"action"`
	Ordinal int              `json:"ordinal"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan model.Alert
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Alert, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("push"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("Worker started", zap.Int("worker", id))
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.log.Debug("Worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an alert. The reconciliation loop must never wait on push
// delivery, so the alert is dropped when the queue is full.
func (wp *WorkerPool) Dispatch(alert model.Alert) {
	select {
	case wp.jobs <- alert:
	default:
		wp.log.Warn("Notification queue full, dropping alert",
			zap.String("kind", string(alert.Kind)), zap.String("message", alert.Message))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Alert {
	return wp.jobs
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert model.Alert) {
	column := "notify_warnings"
	if alert.Kind == model.AlertMotion {
		column = "notify_motion"
	}

	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Where(column+" = ?", true).Find(&subscriptions).Error; err != nil {
		wp.log.Error("Error fetching subscriptions", zap.String("kind", string(alert.Kind)), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Payload{
		Title:   "Coop door",
		Body:    alert.Message,
		Kind:    alert.Kind,
		State:   alert.State,
		Action:  alert.Action,
		Ordinal: alert.Ordinal,
	})
	if err != nil {
		wp.log.Error("Failed to marshal push payload", zap.Error(err))
		return
	}

	wp.log.Info("Sending notifications", zap.Int("count", len(subscriptions)), zap.String("kind", string(alert.Kind)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("Error sending notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed.
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
