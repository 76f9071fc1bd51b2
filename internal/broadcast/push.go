package broadcast

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
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

// PushMessage is the JSON payload delivered to the browser.
type PushMessage struct {
	Kind        queue.EventKind       `json:"kind"`
	ReceptionID string                `json:"receptionId"`
	Status      model.ReceptionStatus `json:"status"`
	Body        string                `json:"body"`
}

// WorkerPool delivers reception events to the browsers following them.
type WorkerPool struct {
	size    int
	jobs    chan queue.Event
	store   store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st store.SubscriptionStore, webpushOptions *webpush.Options, logger zerolog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan queue.Event, size*clientBuffer),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger.With().Str("component", "push").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("push worker started")
	for {
		select {
		case e := <-wp.jobs:
			wp.sendForReception(ctx, e)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("push worker shutting down")
			return
		}
	}
}

// TryDispatch queues an event without blocking and reports whether it fit.
func (wp *WorkerPool) TryDispatch(e queue.Event) bool {
	select {
	case wp.jobs <- e:
		return true
	default:
		return false
	}
}

func (wp *WorkerPool) sendForReception(ctx context.Context, e queue.Event) {
	if e.Reception == nil {
		return
	}
	r := e.Reception
	logger := wp.log.With().Str("reception_id", r.ID).Logger()

	subscriptions, err := wp.store.SubscriptionsForReception(ctx, r.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(PushMessage{
		Kind:        e.Kind,
		ReceptionID: r.ID,
		Status:      r.Status,
		Body:        pushBody(e),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode push payload")
		return
	}

	logger.Debug().Int("subscriptions", len(subscriptions)).Msg("sending push notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

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
		wp.log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("push send failed")
		return
	}
	defer resp.Body.Close()

	// Gone: the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone {
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}

func pushBody(e queue.Event) string {
	if e.Kind == queue.EventDoctorCall {
		return "진료실로 입장해 주세요!"
	}
	switch e.Reception.Status {
	case model.StatusConfirmed:
		return "접수가 확인되었습니다."
	case model.StatusDone:
		return "진료가 완료되었습니다."
	case model.StatusNoResponse:
		return "호출에 응답이 없어 접수가 종료되었습니다."
	case model.StatusCanceled:
		return "접수가 취소되었습니다."
	default:
		return "대기 상태가 변경되었습니다."
	}
}
