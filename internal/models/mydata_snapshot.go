package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MyDataSnapshot is a captured copy of (mock) third-party medical data.
// Rows are never updated once written.
type MyDataSnapshot struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Source       string         `gorm:"size:20;not null;default:MOCK" json:"source"`
	ConsentGiven bool           `gorm:"not null;default:false" json:"consent_given"`
	ConsentAt    *time.Time     `json:"consent_at,omitempty"`
	Payload      datatypes.JSON `gorm:"not null" json:"payload"`
	FetchedAt    time.Time      `gorm:"not null" json:"fetched_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (s *MyDataSnapshot) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}
