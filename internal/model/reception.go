package model

import "time"

// ReceptionStatus is a state of the reception state machine.
type ReceptionStatus string

const (
	StatusPending    ReceptionStatus = "PENDING"     // registered, identity not yet checked
	StatusConfirmed  ReceptionStatus = "CONFIRMED"   // identity checked, waiting to be called
	StatusCalled     ReceptionStatus = "CALLED"      // called into the exam room
	StatusDone       ReceptionStatus = "DONE"        // exam finished
	StatusNoResponse ReceptionStatus = "NO_RESPONSE" // did not show up after being called
	StatusCanceled   ReceptionStatus = "CANCELED"
)

// Valid reports whether s is a known status.
func (s ReceptionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCalled, StatusDone, StatusNoResponse, StatusCanceled:
		return true
	}
	return false
}

// TimestampColumn names the column stamped when a reception enters a status.
type TimestampColumn string

const (
	ColumnConfirmedAt TimestampColumn = "confirmed_at"
	ColumnCalledAt    TimestampColumn = "called_at"
	ColumnCompletedAt TimestampColumn = "completed_at"
)

// Reception is one visit in today's queue. It references, but does not own,
// the patient's permanent record.
type Reception struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	PatientID        string          `gorm:"size:36;index;not null" json:"patientId"`
	Status           ReceptionStatus `gorm:"size:16;index;not null" json:"status"`
	IsGuardian       bool            `gorm:"not null;default:false" json:"isGuardian"`
	NotifyEnabled    bool            `gorm:"not null" json:"notifyEnabled"`
	NotifyAt         *int            `json:"notifyAt,omitempty"`
	NotificationSent bool            `gorm:"not null;default:false" json:"notificationSent"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"createdAt"`
	ConfirmedAt      *time.Time      `gorm:"index" json:"confirmedAt,omitempty"`
	CalledAt         *time.Time      `json:"calledAt,omitempty"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt        time.Time       `json:"-"`

	// Associations
	Patient Patient `gorm:"foreignKey:PatientID;constraint:OnDelete:RESTRICT" json:"patient"`
}

// OrderColumn returns the column that defines queue order inside status s.
func OrderColumn(s ReceptionStatus) string {
	switch s {
	case StatusConfirmed:
		return string(ColumnConfirmedAt)
	case StatusCalled, StatusNoResponse, StatusCanceled:
		return string(ColumnCalledAt)
	case StatusDone:
		return string(ColumnCompletedAt)
	default:
		return "created_at"
	}
}
