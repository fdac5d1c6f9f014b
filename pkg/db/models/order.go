package models

import (
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/enums"
)

// OrderItem is the snapshot of a cart line at checkout time. Product edits
// after checkout never change what a past order displays.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Image     string `json:"image,omitempty"`
}

// Order is one checkout attempt, keyed by the reference round-tripped through
// the payment gateway. Orders are never deleted; they are the audit trail.
type Order struct {
	Reference     string            `gorm:"column:reference;primaryKey"`
	SellerID      string            `gorm:"column:seller_id;not null;index"`
	CustomerName  string            `gorm:"column:customer_name"`
	CustomerEmail string            `gorm:"column:customer_email"`
	CustomerPhone string            `gorm:"column:customer_phone"`
	Items         []OrderItem       `gorm:"column:items;type:jsonb;serializer:json"`
	Total         int               `gorm:"column:total;not null"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	PreferenceID  string            `gorm:"column:preference_id"`
	PaymentID     string            `gorm:"column:payment_id"`
	Reconciled    bool              `gorm:"column:reconciled;not null;default:false"`
	ReceiptSent   bool              `gorm:"column:receipt_sent;not null;default:false"`
	ReconciledAt  *time.Time        `gorm:"column:reconciled_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// LinesTotal recomputes the total from the snapshot lines.
func (o Order) LinesTotal() int {
	total := 0
	for _, item := range o.Items {
		total += item.UnitPrice * item.Quantity
	}
	return total
}
