package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
)

// Recorder writes the stock movement audit trail. Callers treat failures
// as non-fatal; a lost history row never aborts the decrement it records.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder builds a recorder over the provided GORM DB.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordSale persists one movement row for an applied decrement.
func (r *Recorder) RecordSale(ctx context.Context, sellerID, productID, orderRef string, res Result, qty int) error {
	movement := models.StockMovement{
		ID:          uuid.New(),
		SellerID:    sellerID,
		ProductID:   productID,
		OrderRef:    orderRef,
		VariantKey:  res.VariantKey,
		Kind:        enums.MovementKindSale,
		Quantity:    qty,
		StockBefore: res.Before,
		StockAfter:  res.After,
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&movement).Error
}

// ListByProduct returns the newest movements for a product.
func (r *Recorder) ListByProduct(ctx context.Context, sellerID, productID string, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND product_id = ?", sellerID, productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
