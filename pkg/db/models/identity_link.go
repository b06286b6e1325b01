package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// IdentityLink binds one external subject to exactly one local user.
type IdentityLink struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Provider   enums.IdentityProvider `gorm:"column:provider;type:text;not null;uniqueIndex:identity_links_provider_subject_key"`
	Subject    string                 `gorm:"column:subject;not null;uniqueIndex:identity_links_provider_subject_key"`
	UserID     uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	LastSeenAt time.Time              `gorm:"column:last_seen_at;autoCreateTime"`
}

func (l *IdentityLink) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
