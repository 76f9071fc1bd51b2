package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/broadcast"
	"github.com/chani890/MediWait/internal/db"
	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/noshow"
	"github.com/chani890/MediWait/internal/notification"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
)

type smsOutbox struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (o *smsOutbox) Send(_ context.Context, destination, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[destination] = append(o.messages[destination], message)
	return nil
}

func (o *smsOutbox) to(destination string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.messages[destination]...)
}

// TestReceptionLifecycle runs a morning at the clinic through the real store,
// notification trigger, broadcast hub and no-show sweeper.
func TestReceptionLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	appStore := store.NewGormStore(testDB)
	outbox := &smsOutbox{messages: make(map[string][]string)}
	notifyCfg := config.NotificationConfig{DefaultThreshold: 1, CallSMS: true, ClinicName: "Test Clinic"}
	trigger := notification.NewTrigger(appStore, outbox, notifyCfg, zerolog.Nop())

	hub := broadcast.NewHub(nil, zerolog.Nop())
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	var (
		seenMu sync.Mutex
		seen   []queue.EventKind
	)
	go func() {
		for e := range events {
			seenMu.Lock()
			seen = append(seen, e.Kind)
			seenMu.Unlock()
		}
	}()

	svc := queue.NewService(appStore, queue.WithTrigger(trigger), queue.WithPublisher(hub))
	ctx := context.Background()

	register := func(name, phone string) model.Reception {
		r, err := svc.Register(ctx, queue.RegisterRequest{Name: name, PhoneNumber: phone})
		require.NoError(t, err)
		return r
	}

	kim := register("Kim", "010-1111-1111")
	lee := register("Lee", "010-2222-2222")
	park := register("Park", "010-3333-3333")

	// --- Confirmation: Lee has one person ahead and is notified ---
	for _, r := range []model.Reception{kim, lee, park} {
		_, err := svc.Confirm(ctx, r.ID)
		require.NoError(t, err)
	}
	assert.Len(t, outbox.to("01022222222"), 1)
	assert.Empty(t, outbox.to("01033333333"))

	// --- Kim is called; Park now has one person ahead ---
	called, err := svc.CallNextWithRetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, kim.ID, called.ID)
	require.Len(t, outbox.to("01011111111"), 1)
	assert.Contains(t, outbox.to("01011111111")[0], "진료실")
	assert.Len(t, outbox.to("01033333333"), 1)
	assert.Len(t, outbox.to("01022222222"), 1, "Lee is not notified twice")

	// --- Kim never shows up: the sweeper closes the call ---
	sweeper := noshow.NewSweeper(config.NoShowConfig{Enabled: true, Grace: 0, BatchSize: 10}, appStore, svc, zerolog.Nop())
	assert.Equal(t, 1, sweeper.SweepOnce(ctx))

	got, err := svc.Get(ctx, kim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoResponse, got.Status)

	// --- The queue moves on ---
	called, err = svc.CallNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, lee.ID, called.ID)
	_, err = svc.Complete(ctx, lee.ID)
	require.NoError(t, err)

	pos, err := svc.WaitingPosition(ctx, park.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	// DONE is history and can no longer be removed.
	assert.ErrorIs(t, svc.Delete(ctx, lee.ID), queue.ErrIllegalState)
	assert.ErrorIs(t, svc.ForceDelete(ctx, lee.ID), queue.ErrIllegalState)

	assert.Eventually(t, func() bool {
		seenMu.Lock()
		defer seenMu.Unlock()
		calls := 0
		for _, k := range seen {
			if k == queue.EventDoctorCall {
				calls++
			}
		}
		return calls == 2
	}, time.Second, 10*time.Millisecond)
}
