package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chani890/MediWait/internal/model"
)

// PutSubscription creates or replaces a push subscription and the set of
// receptions it follows. Unknown reception ids are ignored.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, receptionIDs []string) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var receptions []*model.Reception
		if len(receptionIDs) > 0 {
			if err := tx.Where("id IN ?", receptionIDs).Find(&receptions).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&sub).Omit("Receptions.*").Association("Receptions").Replace(receptions); err != nil {
			return fmt.Errorf("failed to replace followed receptions: %w", err)
		}
		return nil
	})
}

// GetSubscription loads a subscription with the receptions it follows.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Receptions").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription and its reception links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_reception_mapping WHERE push_subscription_endpoint = ?", endpoint).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	})
}

// SubscriptionsForReception returns every subscription following receptionID.
func (s *gormStore) SubscriptionsForReception(ctx context.Context, receptionID string) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_reception_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.reception_id = ?", receptionID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for reception %s: %w", receptionID, err)
	}
	return subscriptions, nil
}
