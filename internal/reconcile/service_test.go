package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jarafer/armatutienda-backend/internal/payments"
	"github.com/jarafer/armatutienda-backend/internal/stock"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/mercadopago"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubPayments struct {
	payment *mercadopago.Payment
	err     error
}

func (s *stubPayments) CreateCheckout(ctx context.Context, sellerID string, input payments.CheckoutInput) (*payments.CheckoutResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPayments) FetchPayment(ctx context.Context, sellerID, paymentID string) (*mercadopago.Payment, error) {
	return s.payment, s.err
}

type stubLedger struct {
	order *models.Order

	reconciled     bool
	receiptSent    bool
	statusUpdates  []enums.OrderStatus
	markCalls      int
	receiptMarks   int
	findErr        error
	markErr        error
	statusErr      error
	receiptMarkErr error
}

func (s *stubLedger) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.Reference != reference {
		return nil, nil
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubLedger) UpdateStatus(ctx context.Context, reference string, status enums.OrderStatus, paymentID string) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusUpdates = append(s.statusUpdates, status)
	if s.order != nil {
		s.order.Status = status
		s.order.PaymentID = paymentID
	}
	return nil
}

func (s *stubLedger) MarkReconciled(ctx context.Context, reference string, status enums.OrderStatus, paymentID string, at time.Time) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	s.markCalls++
	if s.reconciled {
		return false, nil
	}
	s.reconciled = true
	if s.order != nil {
		s.order.Status = status
		s.order.PaymentID = paymentID
		s.order.Reconciled = true
	}
	return true, nil
}

func (s *stubLedger) MarkReceiptSent(ctx context.Context, reference string) (bool, error) {
	if s.receiptMarkErr != nil {
		return false, s.receiptMarkErr
	}
	s.receiptMarks++
	if s.receiptSent {
		return false, nil
	}
	s.receiptSent = true
	if s.order != nil {
		s.order.ReceiptSent = true
	}
	return true, nil
}

type decrementCall struct {
	productID string
	size      string
	color     string
	qty       int
}

type stubInventory struct {
	products   map[string]*models.Product
	decrements []decrementCall
}

func (s *stubInventory) FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error) {
	return s.products[productID], nil
}

func (s *stubInventory) DecrementStock(ctx context.Context, sellerID, productID, orderRef, size, color string, qty int) (*stock.Result, error) {
	s.decrements = append(s.decrements, decrementCall{productID: productID, size: size, color: color, qty: qty})
	return &stock.Result{}, nil
}

type stubSellers struct {
	seller *models.Seller
}

func (s *stubSellers) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	return s.seller, nil
}

type stubReceipts struct {
	sent  int
	fails bool
}

func (s *stubReceipts) Send(ctx context.Context, order *models.Order, seller *models.Seller) bool {
	s.sent++
	return !s.fails
}

type stubGuard struct {
	held     map[string]bool
	releases int
	err      error
}

func (s *stubGuard) CheckAndMark(ctx context.Context, scope, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.held == nil {
		s.held = map[string]bool{}
	}
	key := scope + ":" + id
	if s.held[key] {
		return false, nil
	}
	s.held[key] = true
	return true, nil
}

func (s *stubGuard) Release(ctx context.Context, scope, id string) {
	s.releases++
	delete(s.held, scope+":"+id)
}

func approvedPayment(reference string) *mercadopago.Payment {
	return &mercadopago.Payment{
		ID:                12345,
		Status:            "approved",
		ExternalReference: reference,
	}
}

func newTestService(t *testing.T, params ServiceParams) Service {
	t.Helper()
	if params.Log == nil {
		params.Log = testLogger()
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestHandleNotificationApprovedDecrementsOnce(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_1700000000000",
		SellerID:  "tienda@example.com",
		Items: []models.OrderItem{
			{ProductID: "remera_20250810_ropa", Title: "Remera (Talle: M, Color: Rojo)", Quantity: 2, UnitPrice: 5000, Size: "M", Color: "Rojo"},
		},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{
		"remera_20250810_ropa": {ID: "remera_20250810_ropa", SellerID: order.SellerID},
	}}
	receiptsStub := &stubReceipts{}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{seller: &models.Seller{Email: order.SellerID}},
		Receipts: receiptsStub,
		Guard:    &stubGuard{},
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "12345", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if len(inventory.decrements) != 1 {
		t.Fatalf("expected 1 decrement, got %d", len(inventory.decrements))
	}
	call := inventory.decrements[0]
	if call.size != "M" || call.color != "Rojo" || call.qty != 2 {
		t.Fatalf("unexpected decrement call: %+v", call)
	}
	if receiptsStub.sent != 1 {
		t.Fatalf("expected 1 receipt, got %d", receiptsStub.sent)
	}
	if !ledger.reconciled || !ledger.receiptSent {
		t.Fatal("ledger flags not set")
	}
}

func TestHandleNotificationRedeliveryLeavesInventoryAlone(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_1700000000001",
		SellerID:  "tienda@example.com",
		Items: []models.OrderItem{
			{ProductID: "p1", Title: "Gorra", Quantity: 1, UnitPrice: 3000},
		},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{
		"p1": {ID: "p1", SellerID: order.SellerID},
	}}
	receiptsStub := &stubReceipts{}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: receiptsStub,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "12345", Topic: "payment"}

	for i := 0; i < 3; i++ {
		if err := svc.HandleNotification(context.Background(), n); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if len(inventory.decrements) != 1 {
		t.Fatalf("expected 1 decrement after replays, got %d", len(inventory.decrements))
	}
	if receiptsStub.sent != 1 {
		t.Fatalf("expected 1 receipt after replays, got %d", receiptsStub.sent)
	}
}

func TestHandleNotificationGuardSuppressesInFlightDuplicate(t *testing.T) {
	t.Parallel()

	order := &models.Order{Reference: "pedido_1", SellerID: "s@example.com"}
	guard := &stubGuard{}
	inventory := &stubInventory{}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   &stubLedger{order: order},
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
		Guard:    guard,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "77", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	// Guard still holds the key, so the duplicate is acknowledged without
	// touching the gateway or the ledger again.
	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if guard.releases != 0 {
		t.Fatalf("guard released on success path: %d", guard.releases)
	}
}

func TestHandleNotificationTransientFetchErrorRequestsRedelivery(t *testing.T) {
	t.Parallel()

	guard := &stubGuard{}
	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{err: pkgerrors.New(pkgerrors.CodeDependency, "gateway timeout")},
		Ledger:   &stubLedger{},
		Products: &stubInventory{},
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
		Guard:    guard,
	})

	n := Notification{SellerID: "s@example.com", PaymentID: "9", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err == nil {
		t.Fatal("expected error so the gateway redelivers")
	}
	if guard.releases != 1 {
		t.Fatalf("guard not released for redelivery: %d", guard.releases)
	}

	// The redelivery can acquire the guard again.
	acquired, err := guard.CheckAndMark(context.Background(), n.SellerID, n.PaymentID)
	if err != nil || !acquired {
		t.Fatalf("guard should be free after release: acquired=%v err=%v", acquired, err)
	}
}

func TestHandleNotificationNonRetryableFetchErrorAcknowledged(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{err: pkgerrors.New(pkgerrors.CodeNotFound, "no such payment")},
		Ledger:   &stubLedger{},
		Products: &stubInventory{},
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
	})

	n := Notification{SellerID: "s@example.com", PaymentID: "9", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("expected ack for non-retryable fetch error, got %v", err)
	}
}

func TestHandleNotificationUnknownReferenceAcknowledged(t *testing.T) {
	t.Parallel()

	inventory := &stubInventory{}
	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment("pedido_desconocido")},
		Ledger:   &stubLedger{},
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
	})

	n := Notification{SellerID: "s@example.com", PaymentID: "5", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("expected ack for unmatched reference, got %v", err)
	}
	if len(inventory.decrements) != 0 {
		t.Fatal("inventory touched for unknown order")
	}
}

func TestHandleNotificationNonApprovedRefreshesStatusOnly(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_2",
		SellerID:  "s@example.com",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 1}},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{"p1": {ID: "p1"}}}
	receiptsStub := &stubReceipts{}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: &mercadopago.Payment{ID: 2, Status: "rejected", ExternalReference: order.Reference}},
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: receiptsStub,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "2", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if len(ledger.statusUpdates) != 1 || ledger.statusUpdates[0] != enums.OrderStatusRejected {
		t.Fatalf("unexpected status updates: %v", ledger.statusUpdates)
	}
	if ledger.reconciled {
		t.Fatal("rejected payment must not reconcile the order")
	}
	if len(inventory.decrements) != 0 || receiptsStub.sent != 0 {
		t.Fatal("rejected payment must not touch inventory or receipts")
	}
}

func TestHandleNotificationSellerMismatchAcknowledged(t *testing.T) {
	t.Parallel()

	order := &models.Order{Reference: "pedido_3", SellerID: "duenio@example.com"}
	ledger := &stubLedger{order: order}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   ledger,
		Products: &stubInventory{},
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
	})

	n := Notification{SellerID: "otro@example.com", PaymentID: "4", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if ledger.reconciled {
		t.Fatal("cross-seller notification must not reconcile")
	}
}

func TestHandleNotificationRetriesUnsentReceiptOnRedelivery(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_4",
		SellerID:  "s@example.com",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 1}},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{"p1": {ID: "p1"}}}
	receiptsStub := &stubReceipts{fails: true}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: receiptsStub,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "4", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if ledger.receiptSent {
		t.Fatal("failed send must leave the receipt flag unset")
	}

	receiptsStub.fails = false
	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !ledger.receiptSent {
		t.Fatal("redelivery should retry the unsent receipt")
	}
	if len(inventory.decrements) != 1 {
		t.Fatalf("redelivery decremented again: %d", len(inventory.decrements))
	}
}

func TestHandleNotificationGuardFreedWhileReceiptUnsent(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_6",
		SellerID:  "s@example.com",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 1}},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{"p1": {ID: "p1"}}}
	receiptsStub := &stubReceipts{fails: true}
	guard := &stubGuard{}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: receiptsStub,
		Guard:    guard,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "6", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if ledger.receiptSent {
		t.Fatal("failed send must leave the receipt flag unset")
	}
	if guard.releases != 1 {
		t.Fatalf("guard must be freed while the receipt is owed: releases=%d", guard.releases)
	}

	// Mail comes back; the gateway redelivery must get past the guard
	// and retry the send without decrementing again.
	receiptsStub.fails = false
	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if receiptsStub.sent != 2 {
		t.Fatalf("expected retry to reach the mailer, got %d sends", receiptsStub.sent)
	}
	if !ledger.receiptSent {
		t.Fatal("redelivery should have sent the receipt")
	}
	if len(inventory.decrements) != 1 {
		t.Fatalf("redelivery decremented again: %d", len(inventory.decrements))
	}
	// Receipt settled now, so the guard stays held for later duplicates.
	if guard.releases != 1 {
		t.Fatalf("guard released after the receipt settled: releases=%d", guard.releases)
	}
}

func TestHandleNotificationApprovalAfterPendingPassesGuard(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_7",
		SellerID:  "s@example.com",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 1}},
	}
	ledger := &stubLedger{order: order}
	inventory := &stubInventory{products: map[string]*models.Product{"p1": {ID: "p1"}}}
	gateway := &stubPayments{payment: &mercadopago.Payment{ID: 7, Status: "pending", ExternalReference: order.Reference}}
	guard := &stubGuard{}

	svc := newTestService(t, ServiceParams{
		Payments: gateway,
		Ledger:   ledger,
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
		Guard:    guard,
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "7", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("pending delivery: %v", err)
	}
	if ledger.reconciled {
		t.Fatal("pending payment must not reconcile")
	}
	if guard.releases != 1 {
		t.Fatalf("guard must be freed while the payment can still approve: releases=%d", guard.releases)
	}

	// The payment approves; the next notification for the same id must
	// reconcile instead of being swallowed by the guard.
	gateway.payment = approvedPayment(order.Reference)
	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("approved delivery: %v", err)
	}
	if !ledger.reconciled || !ledger.receiptSent {
		t.Fatal("approved delivery after pending did not reconcile the order")
	}
	if len(inventory.decrements) != 1 {
		t.Fatalf("expected 1 decrement, got %d", len(inventory.decrements))
	}
}

func TestHandleNotificationMissingFieldsAcknowledged(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{},
		Ledger:   &stubLedger{},
		Products: &stubInventory{},
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
	})

	for _, n := range []Notification{
		{SellerID: "s@example.com"},
		{PaymentID: "1"},
		{},
	} {
		if err := svc.HandleNotification(context.Background(), n); err != nil {
			t.Fatalf("malformed notification must be acknowledged: %+v -> %v", n, err)
		}
	}
}

func TestHandleNotificationParsesSizeFromTitleWhenFieldsEmpty(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Reference: "pedido_5",
		SellerID:  "s@example.com",
		Items: []models.OrderItem{
			{ProductID: "p1", Title: "Campera (Talle: L, Color: Negro)", Quantity: 1},
		},
	}
	inventory := &stubInventory{products: map[string]*models.Product{"p1": {ID: "p1"}}}

	svc := newTestService(t, ServiceParams{
		Payments: &stubPayments{payment: approvedPayment(order.Reference)},
		Ledger:   &stubLedger{order: order},
		Products: inventory,
		Sellers:  &stubSellers{},
		Receipts: &stubReceipts{},
	})

	n := Notification{SellerID: order.SellerID, PaymentID: "5", Topic: "payment"}

	if err := svc.HandleNotification(context.Background(), n); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if len(inventory.decrements) != 1 {
		t.Fatalf("expected 1 decrement, got %d", len(inventory.decrements))
	}
	if call := inventory.decrements[0]; call.size != "L" || call.color != "Negro" {
		t.Fatalf("size/color not parsed from title: %+v", call)
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]enums.OrderStatus{
		"approved":   enums.OrderStatusApproved,
		"APPROVED":   enums.OrderStatusApproved,
		" rejected ": enums.OrderStatusRejected,
		"pending":    enums.OrderStatusPending,
		"weird":      enums.OrderStatusInProcess,
		"":           enums.OrderStatusInProcess,
	}
	for raw, want := range cases {
		if got := normalizeStatus(raw); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}
