package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darzi-doorstep/darzi-backend/internal/repo"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
)

// Repository mirrors the static catalog into the services table.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Sync upserts every catalog service so the table always matches the running binary.
func (r *Repository) Sync(ctx context.Context, c *Catalog) (int, error) {
	services := c.All()
	if len(services) == 0 {
		return 0, nil
	}
	rows := make([]models.Service, 0, len(services))
	for _, svc := range services {
		rows = append(rows, toModel(svc))
	}
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "subcategory", "base_price", "starting_price",
			"description", "turnaround", "image", "variants", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// List returns the mirrored rows ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Service, error) {
	var rows []models.Service
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func toModel(svc Service) models.Service {
	variants := make([]models.ServiceVariant, 0, len(svc.Variants))
	for _, v := range svc.Variants {
		variants = append(variants, models.ServiceVariant{Name: v.Name, Price: int64(v.Price)})
	}
	return models.Service{
		ID:            svc.ID,
		Name:          svc.Name,
		Category:      svc.Category,
		Subcategory:   svc.Subcategory,
		BasePrice:     int64(svc.BasePrice),
		StartingPrice: int64(StartingPrice(svc)),
		Description:   svc.Description,
		Turnaround:    svc.Turnaround,
		Image:         svc.Image,
		Variants:      variants,
	}
}
