package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/api/validators"
	"github.com/jarafer/armatutienda-backend/internal/orders"
	"github.com/jarafer/armatutienda-backend/internal/payments"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type checkoutLineRequest struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title" validate:"required,max=300"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	UnitPrice int    `json:"unit_price" validate:"min=0"`
	Size      string `json:"size" validate:"omitempty,max=50"`
	Color     string `json:"color" validate:"omitempty,max=50"`
	Image     string `json:"image" validate:"omitempty,max=500"`
}

type checkoutRequest struct {
	Lines         []checkoutLineRequest `json:"lines" validate:"required,min=1,max=50,dive"`
	Total         int                   `json:"total" validate:"min=0"`
	CustomerName  string                `json:"customer_name" validate:"omitempty,max=200"`
	CustomerEmail string                `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string                `json:"customer_phone" validate:"omitempty,max=40"`
	SuccessURL    string                `json:"success_url" validate:"omitempty,url"`
	PendingURL    string                `json:"pending_url" validate:"omitempty,url"`
	FailureURL    string                `json:"failure_url" validate:"omitempty,url"`
}

// CheckoutCreate registers a gateway preference for a storefront cart and
// persists the pending order. Public: buyers are anonymous.
func CheckoutCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sellerID := chi.URLParam(r, "sellerID")
		if sellerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "seller id required"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lines := make([]payments.CheckoutLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, payments.CheckoutLine{
				ProductID: line.ProductID,
				Title:     line.Title,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Size:      line.Size,
				Color:     line.Color,
				Image:     line.Image,
			})
		}

		result, err := svc.CreateCheckout(ctx, sellerID, payments.CheckoutInput{
			Lines:         lines,
			ClientTotal:   req.Total,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
			SuccessURL:    req.SuccessURL,
			PendingURL:    req.PendingURL,
			FailureURL:    req.FailureURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderGet returns one ledger entry by reference.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		order, err := svc.Get(ctx, chi.URLParam(r, "reference"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderList returns the authenticated seller's recent orders, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 200 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and 200"))
				return
			}
			limit = parsed
		}

		items, err := svc.List(ctx, email, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
