package stock

import (
	"regexp"
	"strings"
)

// Legacy carts encode size/color inside the free-text line title instead
// of structured fields. Two formats circulate: a labeled one
// ("Camiseta (Talle: M, Color: Rojo)") and a dashed one
// ("Camiseta - M - Rojo"). Extraction is best-effort; a miss returns
// empty strings and the caller degrades to plain stock.

var (
	labeledSizeRe  = regexp.MustCompile(`(?i)talle\s*:\s*([^,()\n]+)`)
	labeledColorRe = regexp.MustCompile(`(?i)color\s*:\s*([^,()\n]+)`)
)

// ExtractSizeColor pulls a size and color out of a legacy line title.
func ExtractSizeColor(title string) (size, color string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ""
	}

	if m := labeledSizeRe.FindStringSubmatch(title); m != nil {
		size = strings.TrimSpace(m[1])
	}
	if m := labeledColorRe.FindStringSubmatch(title); m != nil {
		color = strings.TrimSpace(m[1])
	}
	if size != "" || color != "" {
		return size, color
	}

	// Dashed format: the last two segments are size and color, or just
	// a size when only one trailing segment exists.
	parts := strings.Split(title, " - ")
	switch {
	case len(parts) >= 3:
		return strings.TrimSpace(parts[len(parts)-2]), strings.TrimSpace(parts[len(parts)-1])
	case len(parts) == 2:
		return strings.TrimSpace(parts[1]), ""
	default:
		return "", ""
	}
}
