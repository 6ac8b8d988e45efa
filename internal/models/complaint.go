package models

import "time"

// Complaint is a citizen ticket tracked through the status workflow
// received -> in_review -> resolved | rejected.
type Complaint struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Category string `gorm:"size:50;not null;index" json:"category"`
	Status   string `gorm:"size:30;not null;default:received;index" json:"status"`

	UserID    uint `gorm:"not null;index" json:"user_id"`
	Requester User `gorm:"foreignKey:UserID" json:"requester"`

	// AssignedAdminID is only ever written together with a status change.
	AssignedAdminID *uint `gorm:"index" json:"assigned_admin_id,omitempty"`
	AssignedAdmin   *User `gorm:"foreignKey:AssignedAdminID" json:"assigned_admin,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
