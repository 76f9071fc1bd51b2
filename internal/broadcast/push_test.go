package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// memSubscriptions is an in-memory SubscriptionStore.
type memSubscriptions struct {
	mu      sync.Mutex
	subs    map[string]model.PushSubscription
	follows map[string][]string // reception id -> endpoints
	deleted chan string
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{
		subs:    make(map[string]model.PushSubscription),
		follows: make(map[string][]string),
		deleted: make(chan string, 4),
	}
}

func (m *memSubscriptions) PutSubscription(_ context.Context, sub model.PushSubscription, receptionIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Endpoint] = sub
	for _, id := range receptionIDs {
		m.follows[id] = append(m.follows[id], sub.Endpoint)
	}
	return nil
}

func (m *memSubscriptions) GetSubscription(_ context.Context, endpoint string) (model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[endpoint]
	if !ok {
		return model.PushSubscription{}, store.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (m *memSubscriptions) DeleteSubscription(_ context.Context, endpoint string) error {
	m.mu.Lock()
	delete(m.subs, endpoint)
	m.mu.Unlock()
	m.deleted <- endpoint
	return nil
}

func (m *memSubscriptions) SubscriptionsForReception(_ context.Context, receptionID string) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PushSubscription
	for _, endpoint := range m.follows[receptionID] {
		if sub, ok := m.subs[endpoint]; ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPool_TryDispatch(t *testing.T) {
	wp := NewWorkerPool(1, newMemSubscriptions(), &webpush.Options{}, zerolog.Nop())
	e := queue.Event{Kind: queue.EventDoctorCall, Reception: &model.Reception{ID: "r-1"}}

	assert.True(t, wp.TryDispatch(e))
	select {
	case job := <-wp.jobs:
		assert.Equal(t, "r-1", job.Reception.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}

	// Without workers the buffer eventually fills up.
	for i := 0; i < clientBuffer; i++ {
		require.True(t, wp.TryDispatch(e))
	}
	assert.False(t, wp.TryDispatch(e))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	subs := newMemSubscriptions()
	wp := NewWorkerPool(1, subs, &webpush.Options{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to followers", func(t *testing.T) {
		require.NoError(t, subs.PutSubscription(ctx, model.PushSubscription{
			Endpoint: "https://example.com/push",
			P256DH:   "test_p256dh",
			Auth:     "test_auth",
		}, []string{"r-101"}))

		got := make(chan PushMessage, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				var msg PushMessage
				assert.NoError(t, json.Unmarshal(payload, &msg))
				got <- msg
				return response(http.StatusCreated), nil
			},
		}

		wp.TryDispatch(queue.Event{
			Kind:      queue.EventDoctorCall,
			Reception: &model.Reception{ID: "r-101", Status: model.StatusCalled},
		})

		select {
		case msg := <-got:
			assert.Equal(t, queue.EventDoctorCall, msg.Kind)
			assert.Equal(t, "r-101", msg.ReceptionID)
			assert.Equal(t, model.StatusCalled, msg.Status)
			assert.Equal(t, "진료실로 입장해 주세요!", msg.Body)
		case <-time.After(time.Second):
			t.Fatal("push was not sent")
		}
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		require.NoError(t, subs.PutSubscription(ctx, model.PushSubscription{
			Endpoint: "https://example.com/expired",
			P256DH:   "test_p256dh_expired",
			Auth:     "test_auth_expired",
		}, []string{"r-102"}))

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		wp.TryDispatch(queue.Event{
			Kind:      queue.EventStatusChange,
			Reception: &model.Reception{ID: "r-102", Status: model.StatusDone},
		})

		select {
		case endpoint := <-subs.deleted:
			assert.Equal(t, "https://example.com/expired", endpoint)
		case <-time.After(time.Second):
			t.Fatal("expired subscription was not deleted")
		}
		_, err := subs.GetSubscription(ctx, "https://example.com/expired")
		assert.ErrorIs(t, err, store.ErrSubscriptionNotFound)
	})
}

func TestPushBody(t *testing.T) {
	testCases := []struct {
		name     string
		event    queue.Event
		expected string
	}{
		{name: "Call", event: queue.Event{Kind: queue.EventDoctorCall, Reception: &model.Reception{Status: model.StatusCalled}}, expected: "진료실로 입장해 주세요!"},
		{name: "Confirmed", event: queue.Event{Kind: queue.EventStatusChange, Reception: &model.Reception{Status: model.StatusConfirmed}}, expected: "접수가 확인되었습니다."},
		{name: "Done", event: queue.Event{Kind: queue.EventStatusChange, Reception: &model.Reception{Status: model.StatusDone}}, expected: "진료가 완료되었습니다."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, pushBody(tc.event))
		})
	}
}
