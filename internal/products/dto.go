package product

import (
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
)

// ProductDTO is the wire representation of a catalog entry.
type ProductDTO struct {
	ID            string                    `json:"id"`
	BaseID        string                    `json:"base_id,omitempty"`
	Name          string                    `json:"name"`
	Group         string                    `json:"group"`
	Subgroup      string                    `json:"subgroup"`
	Description   string                    `json:"description,omitempty"`
	Price         int                       `json:"price"`
	PreviousPrice int                       `json:"previous_price,omitempty"`
	HasOffer      bool                      `json:"has_offer"`
	Position      int                       `json:"position"`
	Sizes         []string                  `json:"sizes,omitempty"`
	Colors        []string                  `json:"colors,omitempty"`
	Stock         int                       `json:"stock"`
	StockBySize   map[string]int            `json:"stock_by_size,omitempty"`
	Variants      map[string]models.Variant `json:"variants,omitempty"`
	HasSizeStock  bool                      `json:"has_size_stock"`
	HasVariants   bool                      `json:"has_variants"`
	Image         string                    `json:"image,omitempty"`
	ExtraImages   []string                  `json:"extra_images,omitempty"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// NewProductDTO maps a model to its wire shape.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:            p.ID,
		BaseID:        p.BaseID,
		Name:          p.Name,
		Group:         p.Group,
		Subgroup:      p.Subgroup,
		Description:   p.Description,
		Price:         p.Price,
		PreviousPrice: p.PreviousPrice,
		HasOffer:      p.HasActiveOffer(),
		Position:      p.Position,
		Sizes:         p.Sizes,
		Colors:        p.Colors,
		Stock:         p.Stock,
		StockBySize:   p.StockBySize,
		Variants:      p.Variants,
		HasSizeStock:  p.HasSizeStock,
		HasVariants:   p.HasVariants,
		Image:         p.Image,
		ExtraImages:   p.ExtraImages,
		UpdatedAt:     p.UpdatedAt,
	}
}

// NewProductDTOs maps a slice of models.
func NewProductDTOs(items []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewProductDTO(&items[i]))
	}
	return out
}
