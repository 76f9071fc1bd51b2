package model

import "time"

// Patient is the minimal directory record the queue needs: a stable id plus
// the name and phone used when formatting notifications.
type Patient struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex:idx_patient_identity" json:"name"`
	BirthDate   string    `gorm:"size:10" json:"birthDate"`
	PhoneNumber string    `gorm:"size:20;uniqueIndex:idx_patient_identity" json:"phoneNumber"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
