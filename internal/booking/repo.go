package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// Repository persists bookings and their relay state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	MarkRelayStatus(ctx context.Context, id uuid.UUID, status enums.RelayStatus, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// MarkRelayStatus records the outcome of delivering the booking to the form relay.
func (r *repository) MarkRelayStatus(ctx context.Context, id uuid.UUID, status enums.RelayStatus, at time.Time) error {
	updates := map[string]any{"relay_status": status}
	if status == enums.RelayStatusDelivered {
		updates["relayed_at"] = at
	}
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(updates).Error
}
