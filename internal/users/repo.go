package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/internal/repo"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// Repository exposes profile and identity link persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts a new profile and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPhone retrieves the profile holding the normalized phone.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the profile's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// FindLink resolves an external subject to its identity link.
func (r *Repository) FindLink(ctx context.Context, provider enums.IdentityProvider, subject string) (*models.IdentityLink, error) {
	var link models.IdentityLink
	if err := r.DB(ctx).
		Where("provider = ? AND subject = ?", provider, subject).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateLink binds an external subject to a profile. A concurrent insert for
// the same subject fails on identity_links_provider_subject_key.
func (r *Repository) CreateLink(ctx context.Context, provider enums.IdentityProvider, subject string, userID uuid.UUID) (*models.IdentityLink, error) {
	link := &models.IdentityLink{
		Provider: provider,
		Subject:  subject,
		UserID:   userID,
	}
	if err := r.DB(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// TouchLink records that the link was used for a login.
func (r *Repository) TouchLink(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.IdentityLink{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}
