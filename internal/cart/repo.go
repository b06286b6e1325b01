package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darzi-doorstep/darzi-backend/internal/repo"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// ErrVersionConflict is returned when the server cart moved past the expected version.
var ErrVersionConflict = errors.New("cart version conflict")

// Repository defines the server mirror surface used by the cart service.
type Repository interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Replace(ctx context.Context, userID uuid.UUID, expectedVersion int64, items []Item) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type gormRepository struct {
	repo.Base
}

// NewRepository builds the versioned server cart repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	out := &Cart{}
	var header models.Cart
	err := r.DB(ctx).Where("user_id = ?", userID).Take(&header).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return out, nil
	case err != nil:
		return nil, err
	}
	out.Version = header.Version

	var rows []models.CartItem
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out.Items = make([]Item, 0, len(rows))
	for _, row := range rows {
		out.Items = append(out.Items, Item{
			ServiceID: row.ServiceID,
			Name:      row.Name,
			UnitPrice: types.Rupees(row.UnitPrice),
			Quantity:  row.Quantity,
			Image:     row.Image,
			Category:  row.Category,
		})
	}
	return out, nil
}

// Replace swaps the user's rows for items when the stored version equals
// expectedVersion, returning the bumped version.
func (r *gormRepository) Replace(ctx context.Context, userID uuid.UUID, expectedVersion int64, items []Item) (int64, error) {
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHeader(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&models.Cart{}).
			Where("user_id = ? AND version = ?", userID, expectedVersion).
			Updates(map[string]any{
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.CartItem, 0, len(items))
		for i, item := range items {
			rows = append(rows, models.CartItem{
				UserID:    userID,
				ServiceID: item.ServiceID,
				Name:      item.Name,
				UnitPrice: int64(item.UnitPrice),
				Quantity:  item.Quantity,
				Image:     item.Image,
				Category:  item.Category,
				Position:  i,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

// Clear drops every row for the user and bumps the version so in-flight writers conflict.
func (r *gormRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Cart{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func ensureHeader(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.Cart{UserID: userID}).Error
}
