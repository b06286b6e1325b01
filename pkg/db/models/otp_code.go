package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPCode is the single live verification code for a phone number.
type OTPCode struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Phone     string     `gorm:"column:phone;not null;uniqueIndex"`
	CodeHash  string     `gorm:"column:code_hash;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	Attempts  int        `gorm:"column:attempts;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (c *OTPCode) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
