package controllers

import (
	"net/http"

	"github.com/jarafer/armatutienda-backend/api/middleware"
	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/api/validators"
	"github.com/jarafer/armatutienda-backend/internal/sellers"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AdminKey  string `json:"admin_key" validate:"required,min=8"`
	StoreName string `json:"store_name" validate:"omitempty,max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	AdminKey string `json:"admin_key" validate:"required"`
}

type configRequest struct {
	StoreName *string                 `json:"store_name" validate:"omitempty,max=120"`
	About     *string                 `json:"about" validate:"omitempty,max=2000"`
	Location  *string                 `json:"location" validate:"omitempty,max=300"`
	MapLink   *string                 `json:"map_link" validate:"omitempty,max=500"`
	Facebook  *string                 `json:"facebook" validate:"omitempty,max=300"`
	Instagram *string                 `json:"instagram" validate:"omitempty,max=300"`
	Whatsapp  *string                 `json:"whatsapp" validate:"omitempty,max=40"`
	LogoURL   *string                 `json:"logo_url" validate:"omitempty,max=500"`
	Theme     *models.StorefrontTheme `json:"theme"`
}

type credentialsRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

// SellerRegister creates a seller account.
func SellerRegister(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Register(ctx, sellers.RegisterInput{
			Email:     req.Email,
			AdminKey:  req.AdminKey,
			StoreName: req.StoreName,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// SellerLogin verifies the admin key and returns a session token.
func SellerLogin(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		token, dto, err := svc.Login(ctx, req.Email, req.AdminKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"token":  token,
			"seller": dto,
		})
	}
}

// SellerMe returns the authenticated seller's profile.
func SellerMe(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		dto, err := svc.Get(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SellerUpdateConfig applies wizard settings to the storefront.
func SellerUpdateConfig(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		var req configRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.UpdateConfig(ctx, email, sellers.ConfigInput{
			StoreName: req.StoreName,
			About:     req.About,
			Location:  req.Location,
			MapLink:   req.MapLink,
			Facebook:  req.Facebook,
			Instagram: req.Instagram,
			Whatsapp:  req.Whatsapp,
			LogoURL:   req.LogoURL,
			Theme:     req.Theme,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SellerSetCredentials stores the seller's payment gateway tokens.
func SellerSetCredentials(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email, ok := middleware.SellerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no session"))
			return
		}

		var req credentialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SetGatewayCredentials(ctx, email, sellers.CredentialsInput{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": true})
	}
}
