package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jarafer/armatutienda-backend/pkg/enums"
)

// StockMovement records every stock change applied to a product. Written
// best-effort: a failed history insert never aborts the decrement itself.
type StockMovement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    string             `gorm:"column:seller_id;not null;index"`
	ProductID   string             `gorm:"column:product_id;not null;index"`
	OrderRef    string             `gorm:"column:order_ref"`
	VariantKey  *string            `gorm:"column:variant_key"`
	Kind        enums.MovementKind `gorm:"column:kind;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	StockBefore int                `gorm:"column:stock_before;not null"`
	StockAfter  int                `gorm:"column:stock_after;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }
