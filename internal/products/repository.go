package product

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
)

// Repository persists product documents keyed by (seller_id, product_id).
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

// Upsert inserts the product or replaces the existing row with the same
// composite key. Publishing an edit is an idempotent overwrite. The
// overwrite bumps stock_version so any stock snapshot read before it
// fails its conditional write and reloads.
func (r *Repository) Upsert(ctx context.Context, product *models.Product) error {
	assignments := clause.AssignmentColumns([]string{
		"base_id", "name", "grp", "subgroup", "description", "price",
		"previous_price", "position", "sizes", "colors", "stock",
		"stock_by_size", "variants", "has_size_stock", "has_variants",
		"image", "extra_images", "updated_at",
	})
	assignments = append(assignments, clause.Assignment{
		Column: clause.Column{Name: "stock_version"},
		Value:  gorm.Expr("stock_version + 1"),
	})
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "seller_id"}},
			DoUpdates: assignments,
		}).
		Create(product).Error
}

// FindByID loads one product for the seller. Returns nil when absent.
func (r *Repository) FindByID(ctx context.Context, sellerID, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "seller_id = ? AND id = ?", sellerID, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByBaseID resolves a product through its secondary identifier, kept
// for carts that reference the pre-edit id of a republished product.
func (r *Repository) FindByBaseID(ctx context.Context, sellerID, baseID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "seller_id = ? AND base_id = ?", sellerID, baseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByName does an exact name match, used only as a receipt image fallback.
func (r *Repository) FindByName(ctx context.Context, sellerID, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "seller_id = ? AND name = ?", sellerID, name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListBySeller returns the seller's catalog in display order.
func (r *Repository) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("position ASC, created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateFields applies a partial column update.
func (r *Repository) UpdateFields(ctx context.Context, sellerID, productID string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ? AND id = ?", sellerID, productID).
		Updates(fields).Error
}

// SaveStock persists only the stock counters and flags of a product. The
// write is conditional on stock_version matching the snapshot the counters
// were computed from, so a concurrent edit or republish is never silently
// overwritten. Reports false when the row moved and the caller must reload.
func (r *Repository) SaveStock(ctx context.Context, product *models.Product) (bool, error) {
	expected := product.StockVersion
	product.StockVersion = expected + 1
	// Struct-based update so the jsonb serializers run on the map columns.
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ? AND id = ? AND stock_version = ?", product.SellerID, product.ID, expected).
		Select("stock", "stock_by_size", "variants", "has_size_stock", "has_variants", "stock_version").
		Updates(product)
	if res.Error != nil || res.RowsAffected == 0 {
		product.StockVersion = expected
		return false, res.Error
	}
	return true, nil
}

// Delete removes the product immediately. No soft delete.
func (r *Repository) Delete(ctx context.Context, sellerID, productID string) error {
	return r.db.WithContext(ctx).
		Where("seller_id = ? AND id = ?", sellerID, productID).
		Delete(&models.Product{}).Error
}
