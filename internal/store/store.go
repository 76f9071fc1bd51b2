package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chani890/MediWait/internal/model"
)

// ReceptionStore is the durable record of receptions. Status only changes
// through CompareAndSetStatus or CallIfIdle, both atomic at the storage layer.
type ReceptionStore interface {
	Create(ctx context.Context, r *model.Reception) (string, error)
	Get(ctx context.Context, id string) (model.Reception, error)
	CompareAndSetStatus(ctx context.Context, id string, expected, next model.ReceptionStatus, column model.TimestampColumn, now time.Time) (bool, error)
	CallIfIdle(ctx context.Context, id string, now time.Time) (bool, error)
	ListByStatus(ctx context.Context, status model.ReceptionStatus) ([]model.Reception, error)
	ListCalledBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Reception, error)
	CountByStatus(ctx context.Context, status model.ReceptionStatus) (int64, error)
	Delete(ctx context.Context, id string, protected ...model.ReceptionStatus) error
	MarkNotificationSent(ctx context.Context, id string) (bool, error)
	UpdateNotify(ctx context.Context, id string, enabled bool, notifyAt *int, now time.Time) error
}

// PatientDirectory resolves the patient behind a registration.
type PatientDirectory interface {
	FindOrCreate(ctx context.Context, name, birthDate, phoneNumber string) (model.Patient, bool, error)
}

// SubscriptionStore keeps browser push subscriptions and the receptions they follow.
type SubscriptionStore interface {
	PutSubscription(ctx context.Context, sub model.PushSubscription, receptionIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForReception(ctx context.Context, receptionID string) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	ReceptionStore
	PatientDirectory
	SubscriptionStore
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
