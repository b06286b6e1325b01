package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// User is the local profile every identity assertion resolves to.
type User struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Phone       *string        `gorm:"column:phone;uniqueIndex"`
	Email       *string        `gorm:"column:email"`
	FullName    string         `gorm:"column:full_name;not null;default:''"`
	Role        enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time     `gorm:"column:last_login_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "profiles" }

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
