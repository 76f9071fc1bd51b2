package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chani890/MediWait/internal/db"
	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

// stepClock returns strictly increasing times one second apart.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

type countingTrigger struct {
	mu        sync.Mutex
	evaluated int
	called    []string
	waiting   []string
}

func (c *countingTrigger) Evaluate(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluated++
	return 0, nil
}

func (c *countingTrigger) NotifyCalled(_ context.Context, r model.Reception) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.called = append(c.called, r.ID)
	return nil
}

func (c *countingTrigger) NotifyWaiting(_ context.Context, r model.Reception, ahead int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiting = append(c.waiting, fmt.Sprintf("%s:%d", r.ID, ahead))
	return nil
}

type recordingCleaner struct {
	name string
	log  *[]string
	err  error
}

func (c recordingCleaner) DeleteForReception(_ context.Context, id string) error {
	*c.log = append(*c.log, c.name+":"+id)
	return c.err
}

// register creates a reception for the i-th test patient.
func register(t *testing.T, svc *Service, i int) model.Reception {
	t.Helper()
	r, err := svc.Register(context.Background(), RegisterRequest{
		Name:        fmt.Sprintf("patient-%d", i),
		BirthDate:   "1990-01-15",
		PhoneNumber: fmt.Sprintf("010%08d", i),
	})
	require.NoError(t, err)
	return r
}

func confirm(t *testing.T, svc *Service, id string) {
	t.Helper()
	_, err := svc.Confirm(context.Background(), id)
	require.NoError(t, err)
}

func receptionIDs(rs []model.Reception) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
