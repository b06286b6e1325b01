package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darzi-doorstep/darzi-backend/internal/repo"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
)

// Repository stores the single live code per phone.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Replace upserts the code for phone, discarding whatever code was there before.
func (r *Repository) Replace(ctx context.Context, phone, codeHash string, expiresAt, now time.Time) error {
	row := models.OTPCode{
		ID:        uuid.New(),
		Phone:     phone,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.Assignments(map[string]any{
			"code_hash":  codeHash,
			"expires_at": expiresAt,
			"used_at":    nil,
			"attempts":   0,
			"created_at": now,
		}),
	}).Create(&row).Error
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.OTPCode, error) {
	var row models.OTPCode
	if err := r.DB(ctx).Where("phone = ?", phone).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ClaimAttempt spends one verification attempt on the code, provided it is
// still the same live, unused code with attempts left. The check and the
// increment are a single statement so concurrent verifies cannot overspend.
func (r *Repository) ClaimAttempt(ctx context.Context, id uuid.UUID, codeHash string, maxAttempts int, now time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.OTPCode{}).
		Where("id = ? AND code_hash = ? AND used_at IS NULL AND attempts < ? AND expires_at > ?", id, codeHash, maxAttempts, now).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkUsed consumes the code. It reports false when another request consumed it first.
func (r *Repository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.OTPCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteStale removes codes that expired before cutoff.
func (r *Repository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("expires_at < ?", cutoff).Delete(&models.OTPCode{})
	return res.RowsAffected, res.Error
}
