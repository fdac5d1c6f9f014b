package models

import (
	"time"
)

// Variant is one (size, color) combination of a product with its own counter.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// Product is the canonical seller listing. Stock lives in one of three
// representations; the HasSizeStock/HasVariants flags say which one is
// authoritative. The top-level Stock column always holds the aggregate so
// readers of the simple counter are never stale. StockVersion fences the
// counters: every write bumps it, and conditional writes predicate on it.
type Product struct {
	ID            string             `gorm:"column:id;primaryKey"`
	SellerID      string             `gorm:"column:seller_id;primaryKey"`
	BaseID        string             `gorm:"column:base_id;index"`
	Name          string             `gorm:"column:name;not null"`
	Group         string             `gorm:"column:grp;not null;default:'General'"`
	Subgroup      string             `gorm:"column:subgroup;not null;default:'general'"`
	Description   string             `gorm:"column:description"`
	Price         int                `gorm:"column:price;not null"`
	PreviousPrice int                `gorm:"column:previous_price;not null;default:0"`
	Position      int                `gorm:"column:position;not null;default:999"`
	Sizes         []string           `gorm:"column:sizes;type:jsonb;serializer:json"`
	Colors        []string           `gorm:"column:colors;type:jsonb;serializer:json"`
	Stock         int                `gorm:"column:stock;not null;default:0"`
	StockBySize   map[string]int     `gorm:"column:stock_by_size;type:jsonb;serializer:json"`
	Variants      map[string]Variant `gorm:"column:variants;type:jsonb;serializer:json"`
	HasSizeStock  bool               `gorm:"column:has_size_stock;not null;default:false"`
	HasVariants   bool               `gorm:"column:has_variants;not null;default:false"`
	StockVersion  int                `gorm:"column:stock_version;not null;default:0"`
	Image         string             `gorm:"column:image"`
	ExtraImages   []string           `gorm:"column:extra_images;type:jsonb;serializer:json"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// HasActiveOffer reports whether the previous price counts as a live markdown.
// A previous price at or below the current price is treated as unset.
func (p Product) HasActiveOffer() bool {
	return p.PreviousPrice > p.Price
}
