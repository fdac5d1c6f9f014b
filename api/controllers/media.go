package controllers

import (
	"io"
	"net/http"

	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/internal/media"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

// MediaUpload accepts a multipart batch of product images.
func MediaUpload(svc media.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		// One extra MB of form overhead on top of the per-file cap.
		maxForm := cfg.MaxUploadBytes*int64(cfg.UploadWorkers) + 1<<20
		if err := r.ParseMultipartForm(maxForm); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		form := r.MultipartForm
		if form == nil || len(form.File["images"]) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no images supplied"))
			return
		}

		uploads := make([]media.Upload, 0, len(form.File["images"]))
		for _, header := range form.File["images"] {
			file, err := header.Open()
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading upload"))
				return
			}
			data, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes+1))
			file.Close()
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading upload"))
				return
			}
			uploads = append(uploads, media.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}

		result, err := svc.Upload(ctx, email, uploads)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MediaList returns the seller's stored image URLs.
func MediaList(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		urls, err := svc.List(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"images": urls})
	}
}

// MediaDelete removes one stored image by key.
func MediaDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "key query parameter required"))
			return
		}

		if err := svc.Delete(ctx, email, key); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
