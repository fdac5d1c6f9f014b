package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/api/validators"
	product "github.com/jarafer/armatutienda-backend/internal/products"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type productRequest struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name" validate:"required,max=200"`
	Group         string                    `json:"group" validate:"omitempty,max=100"`
	Subgroup      string                    `json:"subgroup" validate:"omitempty,max=100"`
	Description   string                    `json:"description" validate:"omitempty,max=5000"`
	Price         int                       `json:"price" validate:"min=0"`
	PreviousPrice int                       `json:"previous_price" validate:"min=0"`
	Position      int                       `json:"position"`
	Sizes         []string                  `json:"sizes"`
	Colors        []string                  `json:"colors"`
	Stock         int                       `json:"stock" validate:"min=0"`
	StockBySize   map[string]int            `json:"stock_by_size"`
	Variants      map[string]models.Variant `json:"variants"`
	Image         string                    `json:"image" validate:"omitempty,max=500"`
	ExtraImages   []string                  `json:"extra_images"`
}

type bulkPublishRequest struct {
	Products []productRequest `json:"products" validate:"required,min=1,max=100,dive"`
}

type productEditRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	Price         *int    `json:"price" validate:"omitempty,min=0"`
	PreviousPrice *int    `json:"previous_price" validate:"omitempty,min=0"`
	Position      *int    `json:"position"`
	Image         *string `json:"image" validate:"omitempty,max=500"`
}

func (req productRequest) toInput() product.PublishInput {
	return product.PublishInput{
		ID:            req.ID,
		Name:          req.Name,
		Group:         req.Group,
		Subgroup:      req.Subgroup,
		Description:   req.Description,
		Price:         req.Price,
		PreviousPrice: req.PreviousPrice,
		Position:      req.Position,
		Sizes:         req.Sizes,
		Colors:        req.Colors,
		Stock:         req.Stock,
		StockBySize:   req.StockBySize,
		Variants:      req.Variants,
		Image:         req.Image,
		ExtraImages:   req.ExtraImages,
	}
}

// ProductPublish creates or overwrites a product.
func ProductPublish(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		var req productRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Publish(ctx, email, req.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ProductBulkPublish publishes a batch of products through the worker pool.
func ProductBulkPublish(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		var req bulkPublishRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		inputs := make([]product.PublishInput, 0, len(req.Products))
		for _, item := range req.Products {
			inputs = append(inputs, item.toInput())
		}

		result, err := svc.BulkPublish(ctx, email, inputs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductEdit applies a partial update to one product.
func ProductEdit(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		var req productEditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Edit(ctx, email, chi.URLParam(r, "productID"), product.EditInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			PreviousPrice: req.PreviousPrice,
			Position:      req.Position,
			Image:         req.Image,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ProductList returns the authenticated seller's catalog.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		items, err := svc.List(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ProductGet returns one product of the authenticated seller.
func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		dto, err := svc.Get(ctx, email, chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ProductDelete removes a product permanently.
func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		if err := svc.Delete(ctx, email, chi.URLParam(r, "productID")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// CatalogList is the public storefront view of a seller's products.
func CatalogList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sellerID := chi.URLParam(r, "sellerID")
		if sellerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "seller id required"))
			return
		}

		items, err := svc.List(ctx, sellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
