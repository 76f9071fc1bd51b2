package queue

import (
	"context"

	"github.com/chani890/MediWait/internal/model"
)

// EventKind classifies a broadcast event.
type EventKind string

const (
	EventNewReception EventKind = "NEW_RECEPTION"
	EventStatusChange EventKind = "STATUS_CHANGE"
	EventQueueUpdate  EventKind = "QUEUE_UPDATE"
	EventDoctorCall   EventKind = "DOCTOR_CALL"
)

// Event is published after every state change. Reception is nil for events
// that concern the whole queue.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Reception *model.Reception `json:"reception,omitempty"`
	Previous  string           `json:"previousStatus,omitempty"`
	Waiting   int64            `json:"waitingCount"`
}

// Publisher receives queue events. Publish must not block and its failures
// never undo the change that produced the event.
type Publisher interface {
	Publish(e Event)
}

// Trigger is told about every change of the CONFIRMED ordering so it can send
// threshold notifications.
type Trigger interface {
	Evaluate(ctx context.Context) (int, error)
	NotifyCalled(ctx context.Context, r model.Reception) error
	NotifyWaiting(ctx context.Context, r model.Reception, ahead int) error
}

// DependentCleaner removes records owned by another service (surveys, vitals,
// prescriptions) before a reception is deleted.
type DependentCleaner interface {
	DeleteForReception(ctx context.Context, receptionID string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Publishers fans an event out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Publish(e Event) {
	for _, p := range ps {
		p.Publish(e)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

type nopTrigger struct{}

func (nopTrigger) Evaluate(context.Context) (int, error) {
	return 0, nil
}

func (nopTrigger) NotifyCalled(context.Context, model.Reception) error {
	return nil
}

func (nopTrigger) NotifyWaiting(context.Context, model.Reception, int) error {
	return nil
}
