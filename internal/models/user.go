package models

import (
	"time"

	"healthportal/backend/internal/config"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a registered citizen or administrator.
// Username and email are unique; email is stored lower-cased.
type User struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Username         string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email            string `gorm:"size:120;uniqueIndex;not null" json:"email"`
	FullName         string `gorm:"size:100;not null" json:"full_name"`
	Phone            string `gorm:"size:20;not null" json:"phone"`
	PasswordHash     string `gorm:"size:255;not null" json:"-"`
	ProfileImageName string `gorm:"size:255" json:"profile_image_name,omitempty"`

	RequiredTermsAgreed   bool       `gorm:"not null;default:false" json:"required_terms_agreed"`
	RequiredTermsAgreedAt *time.Time `json:"required_terms_agreed_at,omitempty"`
	OptionalTermsAgreed   bool       `gorm:"not null;default:false" json:"optional_terms_agreed"`
	OptionalTermsAgreedAt *time.Time `json:"optional_terms_agreed_at,omitempty"`

	Role      string    `gorm:"size:20;not null;default:user;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook called before the row is inserted.
// New accounts start as plain users unless a role was set explicitly.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.Role == "" {
		u.Role = config.RoleUser
	}
	return
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == config.RoleAdmin
}
