package model

import "time"

// PushSubscription holds a browser push subscription that follows one or
// more receptions (typically the patient's own phone).
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Receptions []*Reception `gorm:"many2many:subscription_reception_mapping;constraint:OnDelete:CASCADE"`
}
