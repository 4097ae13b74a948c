package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the storefront customer profile.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         *string   `gorm:"column:name"`
	Email        string    `gorm:"column:email;type:text;not null;uniqueIndex:ux_users_email"`
	Phone        *string   `gorm:"column:phone"`
	Image        *string   `gorm:"column:image"`
	PasswordHash *string   `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
