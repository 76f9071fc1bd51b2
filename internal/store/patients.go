package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/chani890/MediWait/internal/model"
)

// FindOrCreate returns the patient registered under name and phone number,
// creating one when none exists. created reports whether a new record was made.
func (s *gormStore) FindOrCreate(ctx context.Context, name, birthDate, phoneNumber string) (model.Patient, bool, error) {
	patient := model.Patient{
		ID:          uuid.NewString(),
		Name:        name,
		BirthDate:   birthDate,
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now().UTC(),
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "phone_number"}},
		DoNothing: true,
	}).Create(&patient)
	if res.Error != nil {
		return model.Patient{}, false, fmt.Errorf("failed to register patient %q: %w", name, res.Error)
	}
	if res.RowsAffected == 1 {
		return patient, true, nil
	}

	var existing model.Patient
	if err := s.db.WithContext(ctx).
		Where("name = ? AND phone_number = ?", name, phoneNumber).
		First(&existing).Error; err != nil {
		return model.Patient{}, false, fmt.Errorf("failed to load patient %q: %w", name, err)
	}
	return existing, false, nil
}
