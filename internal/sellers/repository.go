package sellers

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
)

// Repository persists seller accounts keyed by email.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new seller.
func (r *Repository) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

// FindByEmail loads a seller. Returns nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).First(&seller, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// Save persists the full seller row.
func (r *Repository) Save(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Save(seller).Error
}

// UpdateFields applies a partial column update.
func (r *Repository) UpdateFields(ctx context.Context, email string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("email = ?", email).
		Updates(fields).Error
}

// SaveTokens persists refreshed gateway credentials.
func (r *Repository) SaveTokens(ctx context.Context, email, accessToken, refreshToken string, expiresAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"mp_access_token":     accessToken,
			"mp_refresh_token":    refreshToken,
			"mp_token_expires_at": expiresAt,
		}).Error
}
