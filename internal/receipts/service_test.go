package receipts

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/mail"
)

type stubProducts struct {
	products map[string]*models.Product
}

func (s *stubProducts) FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error) {
	return s.products[productID], nil
}

func newReceiptService(t *testing.T, mailer *mail.Mailer) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Mailer:   mailer,
		Products: &stubProducts{products: map[string]*models.Product{}},
		Log:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSendSkipsWithoutCustomerEmail(t *testing.T) {
	t.Parallel()

	svc := newReceiptService(t, mail.New(config.MailConfig{Host: "smtp.example.com", Username: "u"}))

	order := &models.Order{Reference: "pedido_1", Total: 100}
	if svc.Send(context.Background(), order, nil) {
		t.Fatal("send without customer email must report false")
	}
	if svc.Send(context.Background(), nil, nil) {
		t.Fatal("send with nil order must report false")
	}
}

func TestSendSkipsWhenMailerDisabled(t *testing.T) {
	t.Parallel()

	svc := newReceiptService(t, mail.New(config.MailConfig{}))

	order := &models.Order{Reference: "pedido_2", CustomerEmail: "cliente@example.com"}
	if svc.Send(context.Background(), order, nil) {
		t.Fatal("send with unconfigured mailer must report false")
	}
}

func TestReceiptTemplateRendersOrder(t *testing.T) {
	t.Parallel()

	data := receiptData{
		StoreName: "Mi Tienda",
		Reference: "pedido_1700000000000",
		Customer:  "Ana",
		Total:     130.00,
		Lines: []receiptLine{
			{Title: "Remera", Quantity: 2, UnitPrice: 50, Subtotal: 100, Size: "M", Color: "Rojo"},
			{Title: "Gorra", Quantity: 1, UnitPrice: 30, Subtotal: 30},
		},
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Mi Tienda",
		"pedido_1700000000000",
		"Ana",
		"Remera",
		"Talle: M, Color: Rojo",
		"$130.00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered receipt missing %q", want)
		}
	}
	if strings.Contains(html, "Talle: , ") {
		t.Error("empty size rendered an attribute row")
	}
}
