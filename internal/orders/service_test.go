package orders

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo: NewRepository(setupOrdersTestDB(t)),
		Log:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateKeepsLargerOfComputedAndClientTotal(t *testing.T) {
	svc := newTestService(t)

	items := []models.OrderItem{
		{ProductID: "p1", Title: "Remera", Quantity: 2, UnitPrice: 5000},
		{ProductID: "p2", Title: "Gorra", Quantity: 1, UnitPrice: 3000},
	}

	// Client quotes less than the cart is worth: the computed total wins.
	low, err := svc.Create(context.Background(), CreateInput{
		Reference:   "pedido_total_bajo",
		SellerID:    "tienda@example.com",
		Items:       items,
		ClientTotal: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 13000, low.Total)

	// Client quotes more (shipping added on their side): their total wins.
	high, err := svc.Create(context.Background(), CreateInput{
		Reference:   "pedido_total_alto",
		SellerID:    "tienda@example.com",
		Items:       items,
		ClientTotal: 15000,
	})
	require.NoError(t, err)
	assert.Equal(t, 15000, high.Total)
}

func TestCreateStartsPending(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.Create(context.Background(), CreateInput{
		Reference: "pedido_pendiente",
		SellerID:  "tienda@example.com",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.False(t, order.Reconciled)
	assert.False(t, order.ReceiptSent)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		SellerID: "",
		Items:    []models.OrderItem{{ProductID: "p1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(context.Background(), CreateInput{SellerID: "tienda@example.com"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetUnknownReferenceIsNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "pedido_que_no_existe")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestNewReferenceFormat(t *testing.T) {
	ref := NewReference(time.UnixMilli(1700000000000))
	assert.Equal(t, "pedido_1700000000000", ref)
	assert.True(t, strings.HasPrefix(ref, "pedido_"))
}
