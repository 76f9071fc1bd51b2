package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chani890/MediWait/internal/model"
)

// Create inserts r as a new PENDING reception and returns its id. Any
// lifecycle fields set by the caller are cleared.
func (s *gormStore) Create(ctx context.Context, r *model.Reception) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Status = model.StatusPending
	r.ConfirmedAt = nil
	r.CalledAt = nil
	r.CompletedAt = nil
	r.NotificationSent = false

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return "", fmt.Errorf("failed to create reception for patient %s: %w", r.PatientID, err)
	}
	return r.ID, nil
}

// Get loads a reception together with its patient.
func (s *gormStore) Get(ctx context.Context, id string) (model.Reception, error) {
	var r model.Reception
	err := s.db.WithContext(ctx).Preload("Patient").First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Reception{}, ErrNotFound
	}
	if err != nil {
		return model.Reception{}, fmt.Errorf("failed to load reception %s: %w", id, err)
	}
	return r, nil
}

// CompareAndSetStatus moves a reception from expected to next in a single
// conditional UPDATE and reports whether the row changed. column, when set, is
// stamped with now in the same statement.
func (s *gormStore) CompareAndSetStatus(ctx context.Context, id string, expected, next model.ReceptionStatus, column model.TimestampColumn, now time.Time) (bool, error) {
	updates := map[string]any{
		"status":     next,
		"updated_at": now,
	}
	if column != "" {
		updates[string(column)] = now
	}

	res := s.db.WithContext(ctx).
		Model(&model.Reception{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move reception %s from %s to %s: %w", id, expected, next, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CallIfIdle moves a CONFIRMED reception to CALLED only while no other
// reception is CALLED. The check and the update are one statement; the unique
// index on CALLED rows rejects the rare concurrent writer that slips past it.
func (s *gormStore) CallIfIdle(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE receptions SET status = ?, called_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
		AND NOT EXISTS (SELECT 1 FROM receptions AS c WHERE c.status = ?)`,
		model.StatusCalled, now, now, id, model.StatusConfirmed, model.StatusCalled,
	)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("failed to call reception %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

// ListByStatus returns every reception in status, in queue order for that status.
func (s *gormStore) ListByStatus(ctx context.Context, status model.ReceptionStatus) ([]model.Reception, error) {
	var receptions []model.Reception
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ?", status).
		Order(model.OrderColumn(status) + " ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&receptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s receptions: %w", status, err)
	}
	return receptions, nil
}

// ListCalledBefore returns CALLED receptions whose call happened at or before cutoff.
func (s *gormStore) ListCalledBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Reception, error) {
	var receptions []model.Reception
	q := s.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ? AND called_at <= ?", model.StatusCalled, cutoff).
		Order("called_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&receptions).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue calls: %w", err)
	}
	return receptions, nil
}

func (s *gormStore) CountByStatus(ctx context.Context, status model.ReceptionStatus) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Reception{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s receptions: %w", status, err)
	}
	return n, nil
}

// Delete removes a reception unless its stored status is one of protected.
// The status check and the delete are one statement, so a reception that was
// called concurrently is never removed.
func (s *gormStore) Delete(ctx context.Context, id string, protected ...model.ReceptionStatus) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_reception_mapping WHERE reception_id = ?", id).Error; err != nil {
			return err
		}
		q := tx.Where("id = ?", id)
		if len(protected) > 0 {
			q = q.Where("status NOT IN ?", protected)
		}
		res := q.Delete(&model.Reception{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Roll back the link removal.
			return errNothingDeleted
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNothingDeleted) {
		return fmt.Errorf("failed to delete reception %s: %w", id, err)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrIllegalState
}

// UpdateNotify changes whether and when a reception gets the wait
// notification. A nil notifyAt keeps the current threshold.
func (s *gormStore) UpdateNotify(ctx context.Context, id string, enabled bool, notifyAt *int, now time.Time) error {
	updates := map[string]any{
		"notify_enabled": enabled,
		"updated_at":     now,
	}
	if notifyAt != nil {
		updates["notify_at"] = *notifyAt
	}
	res := s.db.WithContext(ctx).Model(&model.Reception{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update notification settings of reception %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkNotificationSent records a successful wait notification. It only
// applies while the reception is still CONFIRMED and unsent.
func (s *gormStore) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Reception{}).
		Where("id = ? AND status = ? AND notification_sent = ?", id, model.StatusConfirmed, false).
		Update("notification_sent", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark notification for reception %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
