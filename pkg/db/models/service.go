package models

import (
	"time"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// ServiceVariant is stored inline on the catalog mirror row.
type ServiceVariant struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Service mirrors the static catalog so orders and reporting can join on it.
type Service struct {
	ID            string                `gorm:"column:id;primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Category      enums.ServiceCategory `gorm:"column:category;type:text;not null"`
	Subcategory   string                `gorm:"column:subcategory;not null"`
	BasePrice     int64                 `gorm:"column:base_price;not null"`
	StartingPrice int64                 `gorm:"column:starting_price;not null"`
	Description   string                `gorm:"column:description;not null;default:''"`
	Turnaround    string                `gorm:"column:turnaround;not null;default:''"`
	Image         string                `gorm:"column:image;not null;default:''"`
	Variants      []ServiceVariant      `gorm:"column:variants;type:jsonb;serializer:json"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
