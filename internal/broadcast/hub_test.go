package broadcast

import (
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()
	assert.Equal(t, 2, hub.ClientCount())

	hub.Publish(queue.Event{Kind: queue.EventQueueUpdate, Waiting: 3})

	for _, ch := range []<-chan queue.Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, queue.EventQueueUpdate, e.Kind)
			assert.Equal(t, int64(3), e.Waiting)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancelA()
	cancelA()
	assert.Equal(t, 1, hub.ClientCount())
	_, open := <-a
	assert.False(t, open)
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	ch, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*3; i++ {
			hub.Publish(queue.Event{Kind: queue.EventQueueUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
	assert.Len(t, ch, clientBuffer)
}

func TestHub_ForwardsReceptionEventsToPush(t *testing.T) {
	wp := NewWorkerPool(1, newMemSubscriptions(), &webpush.Options{}, zerolog.Nop())
	hub := NewHub(wp, zerolog.Nop())
	r := &model.Reception{ID: "r-1", Status: model.StatusCalled}

	hub.Publish(queue.Event{Kind: queue.EventQueueUpdate})
	hub.Publish(queue.Event{Kind: queue.EventNewReception, Reception: r})
	hub.Publish(queue.Event{Kind: queue.EventDoctorCall, Reception: r})
	hub.Publish(queue.Event{Kind: queue.EventStatusChange, Reception: r})

	require.Len(t, wp.jobs, 2)
	assert.Equal(t, queue.EventDoctorCall, (<-wp.jobs).Kind)
	assert.Equal(t, queue.EventStatusChange, (<-wp.jobs).Kind)
}
