package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/internal/broadcast"
	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
)

// Queue is the set of queue operations the handlers expose.
type Queue interface {
	Register(ctx context.Context, req queue.RegisterRequest) (model.Reception, error)
	ManualRegister(ctx context.Context, req queue.RegisterRequest) (model.Reception, error)
	Confirm(ctx context.Context, id string) (model.Reception, error)
	CallNextWithRetry(ctx context.Context) (model.Reception, error)
	Complete(ctx context.Context, id string) (model.Reception, error)
	MarkNoResponse(ctx context.Context, id string) (model.Reception, error)
	Cancel(ctx context.Context, id string) (model.Reception, error)
	Delete(ctx context.Context, id string) error
	ForceDelete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.Reception, error)
	WaitingPosition(ctx context.Context, id string) (int, error)
	WaitingCount(ctx context.Context) (int64, error)
	Pending(ctx context.Context) ([]model.Reception, error)
	Confirmed(ctx context.Context) ([]model.Reception, error)
	CurrentPatients(ctx context.Context) ([]model.Reception, error)
	SetNotify(ctx context.Context, id string, enabled bool, notifyAt *int) (model.Reception, error)
	SendWaitNotification(ctx context.Context, id string) (model.Reception, error)
}

// SMSControl is the runtime switch between real and simulated SMS delivery.
type SMSControl interface {
	Send(ctx context.Context, destination, message string) error
	Simulation() bool
	SetSimulation(on bool)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	queue   Queue
	store   store.Store
	hub     *broadcast.Hub
	sms     SMSControl
	webpush *webpush.Options
	log     zerolog.Logger
}

// NewHandler creates a new API handler. hub, sms and webpushOptions may be nil.
func NewHandler(q Queue, s store.Store, hub *broadcast.Hub, sms SMSControl, webpushOptions *webpush.Options, logger zerolog.Logger) *Handler {
	return &Handler{
		queue:   q,
		store:   s,
		hub:     hub,
		sms:     sms,
		webpush: webpushOptions,
		log:     logger.With().Str("component", "api").Logger(),
	}
}
