package models

import "time"

// Notice is an admin-authored announcement. Unpublished notices are visible to
// admins only.
type Notice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsPublished bool      `gorm:"not null;default:false;index" json:"is_published"`
	CreatedBy   *uint     `gorm:"index" json:"created_by,omitempty"`
	Creator     *User     `gorm:"foreignKey:CreatedBy" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
