package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/mail"
)

// Service renders and delivers purchase confirmations. Send reports
// success as a boolean and never panics past its boundary, so the
// reconciler's receipt flag is only set on a real delivery.
type Service interface {
	Send(ctx context.Context, order *models.Order, seller *models.Seller) bool
}

type productFinder interface {
	FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error)
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Mailer   *mail.Mailer
	Products productFinder
	Log      *logger.Logger
}

type service struct {
	mailer   *mail.Mailer
	products productFinder
	log      *logger.Logger
}

// NewService constructs the receipt dispatcher.
func NewService(params ServiceParams) (Service, error) {
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		mailer:   params.Mailer,
		products: params.Products,
		log:      params.Log,
	}, nil
}

type receiptLine struct {
	Title     string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
	Size      string
	Color     string
	Image     string
}

type receiptData struct {
	StoreName string
	Reference string
	Customer  string
	Lines     []receiptLine
	Total     float64
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>¡Gracias por tu compra{{if .Customer}}, {{.Customer}}{{end}}!</h2>
  <p>{{.StoreName}} confirmó tu pedido <strong>{{.Reference}}</strong>.</p>
  <table width="100%" cellpadding="8" style="border-collapse: collapse;">
    <tr style="background: #f5f5f5;">
      <th align="left">Producto</th>
      <th align="right">Cantidad</th>
      <th align="right">Precio</th>
      <th align="right">Subtotal</th>
    </tr>
    {{range .Lines}}
    <tr style="border-bottom: 1px solid #eee;">
      <td>
        {{if .Image}}<img src="{{.Image}}" width="48" style="vertical-align: middle; margin-right: 8px;">{{end}}
        {{.Title}}
        {{if .Size}}<br><small>Talle: {{.Size}}{{if .Color}}, Color: {{.Color}}{{end}}</small>{{end}}
      </td>
      <td align="right">{{.Quantity}}</td>
      <td align="right">${{printf "%.2f" .UnitPrice}}</td>
      <td align="right">${{printf "%.2f" .Subtotal}}</td>
    </tr>
    {{end}}
    <tr>
      <td colspan="3" align="right"><strong>Total</strong></td>
      <td align="right"><strong>${{printf "%.2f" .Total}}</strong></td>
    </tr>
  </table>
</body>
</html>`))

// Send delivers the confirmation email for an approved order.
func (s *service) Send(ctx context.Context, order *models.Order, seller *models.Seller) (sent bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error(ctx, "receipt dispatch panicked", fmt.Errorf("%v", rec))
			sent = false
		}
	}()

	if order == nil || order.CustomerEmail == "" {
		s.log.Warn(ctx, "receipt skipped, order has no customer email")
		return false
	}
	if !s.mailer.Enabled() {
		s.log.Warn(ctx, "receipt skipped, mailer not configured")
		return false
	}

	data := s.buildData(ctx, order, seller)

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		s.log.Error(ctx, "rendering receipt", err)
		return false
	}

	msg := s.mailer.To(order.CustomerEmail).
		Subject(fmt.Sprintf("Confirmación de compra - %s", data.StoreName)).
		Body(buf.String())
	if seller != nil && seller.Email != "" {
		msg = msg.ReplyTo(seller.Email)
	}

	if err := msg.Send(); err != nil {
		s.log.Error(s.log.WithOrderRef(ctx, order.Reference), "sending receipt", err)
		return false
	}

	s.log.Info(s.log.WithOrderRef(ctx, order.Reference), "receipt sent")
	return true
}

func (s *service) buildData(ctx context.Context, order *models.Order, seller *models.Seller) receiptData {
	storeName := "Tu tienda"
	if seller != nil && seller.StoreName != "" {
		storeName = seller.StoreName
	}

	data := receiptData{
		StoreName: storeName,
		Reference: order.Reference,
		Customer:  order.CustomerName,
		Total:     float64(order.Total) / 100,
	}

	for _, item := range order.Items {
		line := receiptLine{
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: float64(item.UnitPrice) / 100,
			Subtotal:  float64(item.UnitPrice*item.Quantity) / 100,
			Size:      item.Size,
			Color:     item.Color,
			Image:     s.resolveImage(ctx, order.SellerID, item),
		}
		data.Lines = append(data.Lines, line)
	}
	return data
}

// resolveImage walks the fallback chain: the line's snapshot image, then
// an inventory lookup by id, then a name match, then none.
func (s *service) resolveImage(ctx context.Context, sellerID string, item models.OrderItem) string {
	if item.Image != "" {
		return item.Image
	}
	p, err := s.products.FindForLine(ctx, sellerID, item.ProductID, item.Title)
	if err != nil || p == nil {
		return ""
	}
	return p.Image
}
