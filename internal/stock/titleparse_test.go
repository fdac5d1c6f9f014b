package stock

import "testing"

func TestExtractSizeColor(t *testing.T) {
	cases := []struct {
		title     string
		wantSize  string
		wantColor string
	}{
		{"Camiseta (Talle: M, Color: Rojo)", "M", "Rojo"},
		{"Talle: XL, Color: Azul", "XL", "Azul"},
		{"Talle: M", "M", ""},
		{"Camiseta - M - Rojo", "M", "Rojo"},
		{"Camiseta Retro - L - Verde", "L", "Verde"},
		{"Camiseta - M", "M", ""},
		{"Camiseta", "", ""},
		{"", "", ""},
	}

	for _, tc := range cases {
		size, color := ExtractSizeColor(tc.title)
		if size != tc.wantSize || color != tc.wantColor {
			t.Errorf("ExtractSizeColor(%q) = (%q, %q), want (%q, %q)",
				tc.title, size, color, tc.wantSize, tc.wantColor)
		}
	}
}
