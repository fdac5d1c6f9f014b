// Package sitegen renders a static storefront from a seller's catalog.
// The output mirrors what the hosted wizard shows: one self-contained
// index.html, optionally packed into a zip for download.
package sitegen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html/template"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
)

// Site is the rendered output.
type Site struct {
	HTML []byte
}

type pageProduct struct {
	Name        string
	Description string
	Price       float64
	OldPrice    float64
	HasOffer    bool
	Image       string
	Sizes       []string
	Colors      []string
	InStock     bool
}

type pageData struct {
	StoreName string
	About     string
	Location  string
	MapLink   string
	Facebook  string
	Instagram string
	Whatsapp  string
	LogoURL   string
	Theme     models.StorefrontTheme
	Products  []pageProduct
}

var pageTmpl = template.Must(template.New("storefront").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.StoreName}}</title>
  <style>
    body { font-family: {{if .Theme.Font}}{{.Theme.Font}}{{else}}Arial, sans-serif{{end}}; margin: 0; color: #222; }
    header { background: {{if .Theme.Color}}{{.Theme.Color}}{{else}}#2c3e50{{end}}; color: #fff; padding: 24px; text-align: center; }
    .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 16px; padding: 24px; }
    .card { border: 1px solid #e0e0e0; border-radius: 8px; padding: 12px; }
    .card img { width: 100%; border-radius: 4px; }
    .price { font-weight: bold; }
    .old-price { text-decoration: line-through; color: #999; margin-right: 6px; }
    .soldout { color: #c0392b; font-size: 0.9em; }
    footer { padding: 24px; text-align: center; background: #f5f5f5; }
  </style>
</head>
<body>
  <header>
    {{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.StoreName}}" height="64">{{end}}
    <h1>{{.StoreName}}</h1>
    {{if .About}}<p>{{.About}}</p>{{end}}
  </header>
  <main class="grid">
    {{range .Products}}
    <div class="card">
      {{if .Image}}<img src="{{.Image}}" alt="{{.Name}}">{{end}}
      <h3>{{.Name}}</h3>
      {{if .Description}}<p>{{.Description}}</p>{{end}}
      <p>
        {{if .HasOffer}}<span class="old-price">${{printf "%.2f" .OldPrice}}</span>{{end}}
        <span class="price">${{printf "%.2f" .Price}}</span>
      </p>
      {{if .Sizes}}<p>Talles: {{range $i, $s := .Sizes}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
      {{if .Colors}}<p>Colores: {{range $i, $c := .Colors}}{{if $i}}, {{end}}{{$c}}{{end}}</p>{{end}}
      {{if not .InStock}}<p class="soldout">Sin stock</p>{{end}}
    </div>
    {{end}}
  </main>
  <footer>
    {{if .Location}}<p>{{.Location}}{{if .MapLink}} · <a href="{{.MapLink}}">Cómo llegar</a>{{end}}</p>{{end}}
    <p>
      {{if .Instagram}}<a href="{{.Instagram}}">Instagram</a>{{end}}
      {{if .Facebook}} <a href="{{.Facebook}}">Facebook</a>{{end}}
      {{if .Whatsapp}} <a href="https://wa.me/{{.Whatsapp}}">WhatsApp</a>{{end}}
    </p>
  </footer>
</body>
</html>`))

// Render builds the storefront HTML for a seller's catalog.
func Render(seller *models.Seller, products []models.Product) (*Site, error) {
	if seller == nil {
		return nil, fmt.Errorf("seller required")
	}

	data := pageData{
		StoreName: seller.StoreName,
		About:     seller.About,
		Location:  seller.Location,
		MapLink:   seller.MapLink,
		Facebook:  seller.Facebook,
		Instagram: seller.Instagram,
		Whatsapp:  seller.Whatsapp,
		LogoURL:   seller.LogoURL,
		Theme:     seller.Theme,
	}
	if data.StoreName == "" {
		data.StoreName = "Mi tienda"
	}

	for _, p := range products {
		data.Products = append(data.Products, pageProduct{
			Name:        p.Name,
			Description: p.Description,
			Price:       float64(p.Price) / 100,
			OldPrice:    float64(p.PreviousPrice) / 100,
			HasOffer:    p.HasActiveOffer(),
			Image:       p.Image,
			Sizes:       p.Sizes,
			Colors:      p.Colors,
			InStock:     p.Stock > 0,
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering storefront: %w", err)
	}
	return &Site{HTML: buf.Bytes()}, nil
}

// Zip packs the rendered site into a downloadable archive.
func (s *Site) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	f, err := zw.Create("index.html")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(s.HTML); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
