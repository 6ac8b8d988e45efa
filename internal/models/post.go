package models

import "time"

type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Category string `gorm:"size:50;not null;default:general;index" json:"category"`
	Status   string `gorm:"size:20;not null;default:open" json:"status"`

	UserID uint `gorm:"not null;index" json:"user_id"`
	Author User `gorm:"foreignKey:UserID" json:"author"`

	Attachments []Attachment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a file uploaded with a post. StoredName is the random on-disk
// name; OriginalName is display metadata only.
type Attachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;index" json:"post_id"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	StoredName   string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	MimeType     string    `gorm:"size:120" json:"mime_type"`
	FileSize     int64     `gorm:"not null;default:0" json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "post_attachments"
}
