package sitegen

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
)

func testSeller() *models.Seller {
	return &models.Seller{
		Email:     "tienda@example.com",
		StoreName: "Mi Tienda",
		About:     "Ropa urbana en Rosario",
		Location:  "Rosario, Santa Fe",
		Instagram: "https://instagram.com/mitienda",
		Whatsapp:  "5493410000000",
		Theme:     models.StorefrontTheme{Color: "#ff0077", Font: "Poppins"},
	}
}

func TestRenderStorefront(t *testing.T) {
	t.Parallel()

	products := []models.Product{
		{
			Name:          "Remera Oversize",
			Price:         500000,
			PreviousPrice: 800000,
			Sizes:         []string{"S", "M", "L"},
			Colors:        []string{"Negro", "Blanco"},
			Stock:         5,
		},
		{
			Name:  "Gorra",
			Price: 300000,
			Stock: 0,
		},
	}

	site, err := Render(testSeller(), products)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(site.HTML)

	for _, want := range []string{
		"Mi Tienda",
		"Ropa urbana en Rosario",
		"Remera Oversize",
		"$5000.00",
		"$8000.00",
		"Talles: S, M, L",
		"Colores: Negro, Blanco",
		"Sin stock",
		"#ff0077",
		"Poppins",
		"wa.me/5493410000000",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("storefront missing %q", want)
		}
	}

	// The in-stock product must not carry the sold-out badge.
	remera := html[:strings.Index(html, "Gorra")]
	if strings.Contains(remera, "Sin stock") {
		t.Error("in-stock product shows the sold-out badge")
	}
}

func TestRenderDefaultsStoreName(t *testing.T) {
	t.Parallel()

	site, err := Render(&models.Seller{Email: "x@example.com"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(site.HTML), "Mi tienda") {
		t.Fatal("default store name missing")
	}
}

func TestRenderNilSeller(t *testing.T) {
	t.Parallel()

	if _, err := Render(nil, nil); err == nil {
		t.Fatal("nil seller must fail")
	}
}

func TestZipContainsIndexHTML(t *testing.T) {
	t.Parallel()

	site, err := Render(testSeller(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	archive, err := site.Zip()
	if err != nil {
		t.Fatalf("Zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "index.html" {
		t.Fatalf("unexpected archive contents: %v", zr.File)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("opening entry: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if !bytes.Equal(content, site.HTML) {
		t.Fatal("archived html differs from rendered html")
	}
}
