package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// Cart carries the optimistic-concurrency version of a user's server cart.
type Cart struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Version   int64     `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one normalized cart line mirrored for a signed-in user.
type CartItem struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_items_user_service_key"`
	ServiceID string                `gorm:"column:service_id;not null;uniqueIndex:cart_items_user_service_key"`
	Name      string                `gorm:"column:name;not null"`
	UnitPrice int64                 `gorm:"column:unit_price;not null"`
	Quantity  int                   `gorm:"column:quantity;not null"`
	Image     string                `gorm:"column:image;not null;default:''"`
	Category  enums.ServiceCategory `gorm:"column:category;type:text;not null"`
	Position  int                   `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
