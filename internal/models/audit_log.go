package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrImmutable is returned by hooks of append-only models.
var ErrImmutable = errors.New("record is immutable")

// AuditLog is one append-only record of a system action.
// ActorID is nil for anonymous requests and failed authentication.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    *uint     `gorm:"index" json:"actor_id,omitempty"`
	Actor      *User     `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"-"`
	Action     string    `gorm:"size:200;not null;index" json:"action"`
	TargetType string    `gorm:"size:50" json:"target_type,omitempty"`
	TargetID   string    `gorm:"size:50" json:"target_id,omitempty"`
	Meta       string    `gorm:"type:text" json:"meta,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}
