// Package stock resolves which inventory counter a sale decrements.
//
// Products carry one of three stock schemas that coexist across catalog
// revisions: a plain integer, a per-size map, or a per-size-and-color
// variant map. The resolver picks the narrowest schema that matches the
// requested size/color, clamps at zero, and keeps the top-level aggregate
// in sync with the authoritative leaf counters.
package stock

import (
	"fmt"
	"strings"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
)

// Result describes a single applied decrement.
type Result struct {
	Schema     enums.StockSchema
	VariantKey *string
	Before     int
	After      int
	Aggregate  int
	Degraded   bool
	Note       string
}

// VariantKey builds the canonical map key for a size/color pair.
func VariantKey(size, color string) string {
	return size + "_" + color
}

// Decrement applies a quantity against the product's stock in place and
// returns what happened. Counters never go below zero; overselling is
// absorbed rather than surfaced as an error.
func Decrement(p *models.Product, size, color string, qty int) Result {
	if qty < 0 {
		qty = 0
	}
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)

	switch {
	case p.HasVariants && size != "" && color != "":
		return decrementVariant(p, size, color, qty)
	case p.HasSizeStock && size != "":
		return decrementPerSize(p, size, qty)
	default:
		res := decrementPlain(p, qty)
		if p.HasVariants || p.HasSizeStock {
			res.Degraded = true
			res.Note = "product tracks sized stock but the line carried no usable size/color"
		}
		return res
	}
}

func decrementVariant(p *models.Product, size, color string, qty int) Result {
	key, found := lookupVariantKey(p, size, color)
	if !found {
		res := decrementPlain(p, qty)
		res.Degraded = true
		res.Note = fmt.Sprintf("variant %q not found, decremented plain stock", VariantKey(size, color))
		return res
	}

	variant := p.Variants[key]
	before := variant.Stock
	variant.Stock = clamp(before - qty)
	p.Variants[key] = variant
	p.Stock = sumVariants(p.Variants)

	return Result{
		Schema:     enums.StockSchemaPerVariant,
		VariantKey: &key,
		Before:     before,
		After:      variant.Stock,
		Aggregate:  p.Stock,
	}
}

func decrementPerSize(p *models.Product, size string, qty int) Result {
	if p.StockBySize == nil {
		p.StockBySize = map[string]int{}
	}

	key := size
	if _, ok := p.StockBySize[key]; !ok {
		// Try a case-insensitive match before settling on a zero entry.
		for existing := range p.StockBySize {
			if strings.EqualFold(existing, size) {
				key = existing
				break
			}
		}
	}

	before := p.StockBySize[key]
	p.StockBySize[key] = clamp(before - qty)
	p.Stock = sumBySize(p.StockBySize)

	return Result{
		Schema:     enums.StockSchemaPerSize,
		VariantKey: &key,
		Before:     before,
		After:      p.StockBySize[key],
		Aggregate:  p.Stock,
	}
}

func decrementPlain(p *models.Product, qty int) Result {
	before := p.Stock
	p.Stock = clamp(before - qty)
	return Result{
		Schema:    enums.StockSchemaPlain,
		Before:    before,
		After:     p.Stock,
		Aggregate: p.Stock,
	}
}

// lookupVariantKey finds the exact key first, then falls back to a
// case-insensitive scan over keys and the size/color fields themselves.
func lookupVariantKey(p *models.Product, size, color string) (string, bool) {
	exact := VariantKey(size, color)
	if _, ok := p.Variants[exact]; ok {
		return exact, true
	}
	for key, variant := range p.Variants {
		if strings.EqualFold(key, exact) {
			return key, true
		}
		if strings.EqualFold(variant.Size, size) && strings.EqualFold(variant.Color, color) {
			return key, true
		}
	}
	return "", false
}

// Total returns the product's available stock summed over the
// authoritative schema.
func Total(p *models.Product) int {
	switch {
	case p.HasVariants:
		return sumVariants(p.Variants)
	case p.HasSizeStock:
		return sumBySize(p.StockBySize)
	default:
		return p.Stock
	}
}

// Normalize recomputes the aggregate stock field from the authoritative
// schema so readers of the plain counter are never stale.
func Normalize(p *models.Product) {
	p.Stock = Total(p)
}

func sumVariants(variants map[string]models.Variant) int {
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}

func sumBySize(bySize map[string]int) int {
	total := 0
	for _, n := range bySize {
		total += n
	}
	return total
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
