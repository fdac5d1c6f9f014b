package sellers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/auth"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/security"
)

// Service manages seller accounts, sessions and storefront configuration.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*SellerDTO, error)
	Login(ctx context.Context, email, adminKey string) (string, *SellerDTO, error)
	Get(ctx context.Context, email string) (*SellerDTO, error)
	UpdateConfig(ctx context.Context, email string, input ConfigInput) (*SellerDTO, error)
	SetGatewayCredentials(ctx context.Context, email string, input CredentialsInput) error
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email     string
	AdminKey  string
	StoreName string
}

// ConfigInput carries the wizard's storefront settings. Nil pointers
// leave the stored value untouched.
type ConfigInput struct {
	StoreName *string
	About     *string
	Location  *string
	MapLink   *string
	Facebook  *string
	Instagram *string
	Whatsapp  *string
	LogoURL   *string
	Theme     *models.StorefrontTheme
}

// CredentialsInput carries per-seller gateway tokens.
type CredentialsInput struct {
	AccessToken  string
	RefreshToken string
}

// SellerDTO is the wire representation of a seller account. The admin key
// hash and gateway tokens never leave the service.
type SellerDTO struct {
	Email        string                 `json:"email"`
	StoreName    string                 `json:"store_name"`
	About        string                 `json:"about,omitempty"`
	Location     string                 `json:"location,omitempty"`
	MapLink      string                 `json:"map_link,omitempty"`
	Facebook     string                 `json:"facebook,omitempty"`
	Instagram    string                 `json:"instagram,omitempty"`
	Whatsapp     string                 `json:"whatsapp,omitempty"`
	LogoURL      string                 `json:"logo_url,omitempty"`
	Theme        models.StorefrontTheme `json:"theme"`
	GatewayReady bool                   `json:"gateway_ready"`
	RepoURL      string                 `json:"repo_url,omitempty"`
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Repo *Repository
	JWT  config.JWTConfig
	Log  *logger.Logger
}

type service struct {
	repo *Repository
	jwt  config.JWTConfig
	log  *logger.Logger
}

// NewService constructs the seller service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, jwt: params.JWT, log: params.Log}, nil
}

// Register creates a new seller account with a hashed admin key.
func (s *service) Register(ctx context.Context, input RegisterInput) (*SellerDTO, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.AdminKey) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin key must be at least 8 characters")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already registered")
	}

	hash, err := security.HashKey(input.AdminKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing admin key")
	}

	seller := &models.Seller{
		Email:        email,
		AdminKeyHash: hash,
		StoreName:    strings.TrimSpace(input.StoreName),
	}
	if err := s.repo.Create(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert seller")
	}

	s.log.Info(s.log.WithSellerID(ctx, email), "seller registered")
	return newSellerDTO(seller), nil
}

// Login verifies the admin key and mints a session token.
func (s *service) Login(ctx context.Context, email, adminKey string) (string, *SellerDTO, error) {
	email = normalizeEmail(email)
	seller, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if seller == nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyKey(adminKey, seller.AdminKeyHash)
	if err != nil || !ok {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := auth.MintSellerToken(s.jwt, time.Now().UTC(), email)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting session token")
	}

	s.log.Info(s.log.WithSellerID(ctx, email), "seller logged in")
	return token, newSellerDTO(seller), nil
}

func (s *service) Get(ctx context.Context, email string) (*SellerDTO, error) {
	seller, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if seller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return newSellerDTO(seller), nil
}

// UpdateConfig applies the wizard's storefront settings.
func (s *service) UpdateConfig(ctx context.Context, email string, input ConfigInput) (*SellerDTO, error) {
	email = normalizeEmail(email)
	seller, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if seller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	applyString(&seller.StoreName, input.StoreName)
	applyString(&seller.About, input.About)
	applyString(&seller.Location, input.Location)
	applyString(&seller.MapLink, input.MapLink)
	applyString(&seller.Facebook, input.Facebook)
	applyString(&seller.Instagram, input.Instagram)
	applyString(&seller.Whatsapp, input.Whatsapp)
	applyString(&seller.LogoURL, input.LogoURL)
	if input.Theme != nil {
		seller.Theme = *input.Theme
	}

	if err := s.repo.Save(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save seller config")
	}
	return newSellerDTO(seller), nil
}

// SetGatewayCredentials stores the seller's Mercado Pago tokens. Only
// production credentials are accepted.
func (s *service) SetGatewayCredentials(ctx context.Context, email string, input CredentialsInput) error {
	email = normalizeEmail(email)
	token := strings.TrimSpace(input.AccessToken)
	if !strings.HasPrefix(token, "APP_USR-") {
		return pkgerrors.New(pkgerrors.CodeValidation, "access token must be a production credential (APP_USR- prefix)")
	}

	seller, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller")
	}
	if seller == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}

	if err := s.repo.SaveTokens(ctx, email, token, strings.TrimSpace(input.RefreshToken), nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save gateway credentials")
	}

	s.log.Info(s.log.WithSellerID(ctx, email), "gateway credentials updated")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newSellerDTO(seller *models.Seller) *SellerDTO {
	return &SellerDTO{
		Email:        seller.Email,
		StoreName:    seller.StoreName,
		About:        seller.About,
		Location:     seller.Location,
		MapLink:      seller.MapLink,
		Facebook:     seller.Facebook,
		Instagram:    seller.Instagram,
		Whatsapp:     seller.Whatsapp,
		LogoURL:      seller.LogoURL,
		Theme:        seller.Theme,
		GatewayReady: seller.MPAccessToken != "",
		RepoURL:      seller.RepoURL,
	}
}
