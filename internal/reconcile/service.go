// Package reconcile implements the webhook-driven order state machine:
// fetch authoritative payment detail, decrement inventory exactly once,
// and dispatch the receipt, all idempotent against gateway redeliveries.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jarafer/armatutienda-backend/internal/payments"
	"github.com/jarafer/armatutienda-backend/internal/receipts"
	"github.com/jarafer/armatutienda-backend/internal/stock"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/metrics"
)

// Ledger is the slice of the order repository the reconciler drives.
type Ledger interface {
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	UpdateStatus(ctx context.Context, reference string, status enums.OrderStatus, paymentID string) error
	MarkReconciled(ctx context.Context, reference string, status enums.OrderStatus, paymentID string, at time.Time) (bool, error)
	MarkReceiptSent(ctx context.Context, reference string) (bool, error)
}

// Inventory is the decrement primitive exposed by the product service.
type Inventory interface {
	DecrementStock(ctx context.Context, sellerID, productID, orderRef, size, color string, qty int) (*stock.Result, error)
	FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error)
}

// SellerStore loads the seller whose storefront the order belongs to.
type SellerStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Seller, error)
}

// Guard suppresses concurrent processing of the same notification. It is
// an optimization; the conditional update on the ledger is the real
// idempotency barrier.
type Guard interface {
	CheckAndMark(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string)
}

// Service processes payment notifications.
type Service interface {
	HandleNotification(ctx context.Context, n Notification) error
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Payments payments.Service
	Ledger   Ledger
	Products Inventory
	Sellers  SellerStore
	Receipts receipts.Service
	Guard    Guard
	Metrics  *metrics.WebhookMetrics
	Log      *logger.Logger
}

type service struct {
	payments payments.Service
	ledger   Ledger
	products Inventory
	sellers  SellerStore
	receipts receipts.Service
	guard    Guard
	metrics  *metrics.WebhookMetrics
	log      *logger.Logger
}

// NewService constructs the reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product inventory required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller store required")
	}
	if params.Receipts == nil {
		return nil, fmt.Errorf("receipt dispatcher required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		payments: params.Payments,
		ledger:   params.Ledger,
		products: params.Products,
		sellers:  params.Sellers,
		receipts: params.Receipts,
		guard:    params.Guard,
		metrics:  params.Metrics,
		log:      params.Log,
	}, nil
}

// HandleNotification runs one notification through the state machine.
// A nil return acknowledges the webhook; an error returns a non-success
// status so the gateway redelivers. Only transient failures (gateway
// fetch, ledger writes) take the error path; malformed or unmatchable
// notifications are acknowledged as benign no-ops.
func (s *service) HandleNotification(ctx context.Context, n Notification) error {
	started := time.Now()
	s.metrics.IncReceived(n.Topic)
	defer func() {
		s.metrics.ObserveDuration(n.Topic, time.Since(started))
	}()

	ctx = s.log.WithFields(ctx, map[string]any{
		"seller_id":  n.SellerID,
		"payment_id": n.PaymentID,
	})

	if n.PaymentID == "" {
		s.log.Warn(ctx, "notification missing payment id, acknowledged")
		s.metrics.IncFailure("parse")
		return nil
	}
	if n.SellerID == "" {
		s.log.Warn(ctx, "notification missing seller, acknowledged")
		s.metrics.IncFailure("parse")
		return nil
	}

	if s.guard != nil {
		acquired, err := s.guard.CheckAndMark(ctx, n.SellerID, n.PaymentID)
		if err != nil {
			// Redis being down never blocks reconciliation; the ledger
			// conditional update still holds the invariant.
			s.log.Warn(ctx, "idempotency guard unavailable, continuing")
		} else if !acquired {
			s.log.Info(ctx, "notification already in flight, acknowledged")
			s.metrics.IncDuplicate()
			return nil
		}
	}

	pending, err := s.process(ctx, n)
	if s.guard != nil && (err != nil || pending) {
		// Free the guard whenever work remains for this payment: transient
		// failures, a status that can still move to approved, or a receipt
		// still owed. Redelivery is the only retry path for all of them.
		s.guard.Release(ctx, n.SellerID, n.PaymentID)
	}
	return err
}

// process runs the state machine for one notification. pending reports
// that a later delivery for the same payment still has work to do (the
// payment is not approved yet, or the receipt is unsent), so the guard
// must not pin the acknowledgement.
func (s *service) process(ctx context.Context, n Notification) (pending bool, err error) {
	payment, err := s.payments.FetchPayment(ctx, n.SellerID, n.PaymentID)
	if err != nil {
		s.metrics.IncFailure("fetch_payment")
		if pkgerrors.IsRetryable(err) {
			s.log.Error(ctx, "gateway fetch failed, requesting redelivery", err)
			return false, err
		}
		s.log.Warn(ctx, "gateway rejected payment lookup, acknowledged")
		return false, nil
	}

	reference := strings.TrimSpace(payment.ExternalReference)
	if reference == "" {
		s.log.Warn(ctx, "payment carries no external reference, acknowledged")
		return false, nil
	}
	ctx = s.log.WithOrderRef(ctx, reference)

	order, err := s.ledger.FindByReference(ctx, reference)
	if err != nil {
		s.metrics.IncFailure("load_order")
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		s.log.Warn(ctx, "no order for external reference, acknowledged")
		return false, nil
	}
	if order.SellerID != n.SellerID {
		s.log.Warn(ctx, "order belongs to a different seller, acknowledged")
		return false, nil
	}

	status := normalizeStatus(payment.Status)

	if status != enums.OrderStatusApproved {
		if err := s.ledger.UpdateStatus(ctx, reference, status, n.PaymentID); err != nil {
			s.metrics.IncFailure("update_status")
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		s.log.Info(ctx, "order status refreshed")
		return true, nil
	}

	applied, err := s.ledger.MarkReconciled(ctx, reference, status, n.PaymentID, time.Now().UTC())
	if err != nil {
		s.metrics.IncFailure("mark_reconciled")
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order reconciled")
	}

	if applied {
		s.decrementLines(ctx, order)
		s.metrics.IncReconciled(string(status))
		s.log.Info(ctx, "order reconciled")
	} else {
		// Duplicate delivery. Keep the mirrored fields fresh but leave
		// inventory alone.
		if err := s.ledger.UpdateStatus(ctx, reference, status, n.PaymentID); err != nil {
			s.log.Warn(ctx, "status refresh on duplicate failed")
		}
		s.metrics.IncDuplicate()
		s.log.Info(ctx, "order already reconciled, inventory untouched")
	}

	return !s.maybeSendReceipt(ctx, order), nil
}

// decrementLines applies every cart line best-effort. One bad line is
// logged and skipped; the customer already paid for the rest.
func (s *service) decrementLines(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		lineCtx := s.log.WithField(ctx, "product_id", item.ProductID)

		product, err := s.products.FindForLine(ctx, order.SellerID, item.ProductID, item.Title)
		if err != nil {
			s.metrics.IncFailure("resolve_product")
			s.log.Error(lineCtx, "resolving product for line", err)
			continue
		}
		if product == nil {
			s.metrics.IncFailure("resolve_product")
			s.log.Warn(lineCtx, "line references unknown product, skipped")
			continue
		}

		size, color := item.Size, item.Color
		if size == "" && color == "" {
			size, color = stock.ExtractSizeColor(item.Title)
		}

		if _, err := s.products.DecrementStock(ctx, order.SellerID, product.ID, order.Reference, size, color, item.Quantity); err != nil {
			s.metrics.IncFailure("decrement")
			s.log.Error(lineCtx, "decrementing stock for line", err)
		}
	}
}

// maybeSendReceipt dispatches the confirmation once. It reports whether
// the receipt is settled; a failed delivery or a failed flag write leaves
// the flag unset and returns false so the next redelivery retries it.
func (s *service) maybeSendReceipt(ctx context.Context, order *models.Order) bool {
	if order.ReceiptSent {
		return true
	}

	seller, err := s.sellers.FindByEmail(ctx, order.SellerID)
	if err != nil {
		s.log.Warn(ctx, "loading seller for receipt failed")
		seller = nil
	}

	if !s.receipts.Send(ctx, order, seller) {
		s.metrics.IncFailure("receipt")
		return false
	}
	if _, err := s.ledger.MarkReceiptSent(ctx, order.Reference); err != nil {
		s.log.Warn(ctx, "marking receipt sent failed")
		return false
	}
	return true
}

func normalizeStatus(raw string) enums.OrderStatus {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if enums.KnownOrderStatus(raw) {
		return enums.OrderStatus(raw)
	}
	return enums.OrderStatusInProcess
}
