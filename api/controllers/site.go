package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/internal/mirror"
	"github.com/jarafer/armatutienda-backend/internal/sitegen"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type sellerLoader interface {
	FindByEmail(ctx context.Context, email string) (*models.Seller, error)
}

type catalogLoader interface {
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
}

func loadStorefront(ctx context.Context, sellerID string, sellersRepo sellerLoader, productsRepo catalogLoader) (*models.Seller, []models.Product, error) {
	seller, err := sellersRepo.FindByEmail(ctx, sellerID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if seller == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	products, err := productsRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return seller, products, nil
}

// SitePreview serves the rendered storefront HTML.
func SitePreview(sellersRepo sellerLoader, productsRepo catalogLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		seller, products, err := loadStorefront(ctx, chi.URLParam(r, "sellerID"), sellersRepo, productsRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		site, err := sitegen.Render(seller, products)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering storefront"))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(site.HTML)
	}
}

// SiteDownload returns the storefront as a zip archive.
func SiteDownload(sellersRepo sellerLoader, productsRepo catalogLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		seller, products, err := loadStorefront(ctx, email, sellersRepo, productsRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		site, err := sitegen.Render(seller, products)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering storefront"))
			return
		}
		archive, err := site.Zip()
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "packing storefront"))
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tienda.zip"))
		w.WriteHeader(http.StatusOK)
		w.Write(archive)
	}
}

// SiteMirror publishes the storefront to the seller's mirror repository.
func SiteMirror(svc mirror.Service, sellersRepo sellerLoader, productsRepo catalogLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}
		if !svc.Enabled() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "mirroring is not configured"))
			return
		}

		seller, products, err := loadStorefront(ctx, email, sellersRepo, productsRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.Publish(ctx, seller, products)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publishing mirror"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"repo_url": url})
	}
}
