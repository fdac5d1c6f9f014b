package orders

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
)

// Repository persists the order ledger. Orders are append-and-update only;
// nothing is ever deleted.
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

// Create inserts a new ledger entry.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByReference loads an order. Returns nil when absent.
func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListBySeller returns the seller's orders, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Order
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus refreshes the mirrored gateway status and payment id.
func (r *Repository) UpdateStatus(ctx context.Context, reference string, status enums.OrderStatus, paymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ?", reference).
		Updates(map[string]any{
			"status":     status,
			"payment_id": paymentID,
		}).Error
}

// MarkReconciled flips the reconciled flag with `reconciled = false` as a
// precondition, so two concurrent notifications cannot both win. Returns
// true when this caller applied the transition.
func (r *Repository) MarkReconciled(ctx context.Context, reference string, status enums.OrderStatus, paymentID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ? AND reconciled = ?", reference, false).
		Updates(map[string]any{
			"status":        status,
			"payment_id":    paymentID,
			"reconciled":    true,
			"reconciled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkReceiptSent flips the receipt flag once. Returns true when this
// caller applied the transition.
func (r *Repository) MarkReceiptSent(ctx context.Context, reference string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ? AND receipt_sent = ?", reference, false).
		Update("receipt_sent", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
