package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/enums"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

// Service manages the order ledger around checkout.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, sellerID string, limit int) ([]models.Order, error)
}

// CreateInput is the validated payload for a new ledger entry.
type CreateInput struct {
	Reference     string
	SellerID      string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []models.OrderItem
	ClientTotal   int
	PreferenceID  string
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Repo *Repository
	Log  *logger.Logger
}

type service struct {
	repo *Repository
	log  *logger.Logger
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, log: params.Log}, nil
}

// NewReference builds the order reference round-tripped through the gateway.
func NewReference(now time.Time) string {
	return fmt.Sprintf("pedido_%d", now.UnixMilli())
}

// Create persists a pending order. The stored total is the larger of the
// computed cart total and the client-supplied one; a client-side total is
// never trusted to shrink the order.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.SellerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	reference := input.Reference
	if reference == "" {
		reference = NewReference(time.Now().UTC())
	}

	order := &models.Order{
		Reference:     reference,
		SellerID:      input.SellerID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Items:         input.Items,
		Status:        enums.OrderStatusPending,
		PreferenceID:  input.PreferenceID,
	}

	order.Total = order.LinesTotal()
	if input.ClientTotal > order.Total {
		order.Total = input.ClientTotal
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
	}

	logCtx := s.log.WithOrderRef(ctx, order.Reference)
	s.log.Info(logCtx, "order created")
	return order, nil
}

func (s *service) Get(ctx context.Context, reference string) (*models.Order, error) {
	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, sellerID string, limit int) ([]models.Order, error) {
	list, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return list, nil
}
