package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jarafer/armatutienda-backend/internal/orders"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/mercadopago"
)

const currency = "ARS"

// Gateway is the slice of the Mercado Pago client the service uses.
type Gateway interface {
	CreatePreference(ctx context.Context, accessToken string, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, accessToken, paymentID string) (*mercadopago.Payment, error)
	RefreshToken(ctx context.Context, refreshToken string) (*mercadopago.TokenResponse, error)
}

// CredentialStore loads and persists per-seller gateway credentials.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Seller, error)
	SaveTokens(ctx context.Context, email, accessToken, refreshToken string, expiresAt *time.Time) error
}

// Service creates checkout preferences and fetches authoritative payment
// detail on behalf of a seller.
type Service interface {
	CreateCheckout(ctx context.Context, sellerID string, input CheckoutInput) (*CheckoutResult, error)
	FetchPayment(ctx context.Context, sellerID, paymentID string) (*mercadopago.Payment, error)
}

// CheckoutLine is one cart line as submitted by the storefront.
type CheckoutLine struct {
	ProductID string
	Title     string
	Quantity  int
	UnitPrice int
	Size      string
	Color     string
	Image     string
}

// CheckoutInput is the validated checkout payload.
type CheckoutInput struct {
	Lines         []CheckoutLine
	ClientTotal   int
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	SuccessURL    string
	PendingURL    string
	FailureURL    string
}

// CheckoutResult is what the storefront needs to redirect the buyer.
type CheckoutResult struct {
	Reference    string `json:"reference"`
	PreferenceID string `json:"preference_id"`
	CheckoutURL  string `json:"checkout_url"`
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Gateway     Gateway
	Credentials CredentialStore
	Orders      orders.Service
	Config      config.MercadoPagoConfig
	BaseURL     string
	Log         *logger.Logger
}

type service struct {
	gateway     Gateway
	credentials CredentialStore
	orders      orders.Service
	cfg         config.MercadoPagoConfig
	baseURL     string
	log         *logger.Logger
}

// NewService constructs the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:     params.Gateway,
		credentials: params.Credentials,
		orders:      params.Orders,
		cfg:         params.Config,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
		log:         params.Log,
	}, nil
}

// CreateCheckout registers a preference with the gateway and persists the
// pending order under the same external reference.
func (s *service) CreateCheckout(ctx context.Context, sellerID string, input CheckoutInput) (*CheckoutResult, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	token, err := s.resolveToken(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	reference := orders.NewReference(time.Now().UTC())
	items := make([]mercadopago.PreferenceItem, 0, len(input.Lines))
	orderItems := make([]models.OrderItem, 0, len(input.Lines))

	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		productID := line.ProductID
		if productID == "" {
			// The webhook still needs an id to attempt reconciliation
			// against, even if it is only a placeholder.
			productID = "tmp_" + uuid.NewString()
			s.log.Warn(s.log.WithOrderRef(ctx, reference), "cart line missing product id, assigned synthetic id")
		}

		items = append(items, mercadopago.PreferenceItem{
			ID:         productID,
			Title:      lineTitle(line),
			Quantity:   line.Quantity,
			UnitPrice:  minorUnitsToAmount(line.UnitPrice),
			CurrencyID: currency,
			PictureURL: line.Image,
		})
		orderItems = append(orderItems, models.OrderItem{
			ProductID: productID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Size:      line.Size,
			Color:     line.Color,
			Image:     line.Image,
		})
	}

	req := mercadopago.PreferenceRequest{
		Items:             items,
		ExternalReference: reference,
		AutoReturn:        "approved",
		// The webhook carries the seller so payment detail can be
		// fetched with that seller's credentials.
		NotificationURL:   s.baseURL + "/api/webhooks/mercadopago?seller=" + url.QueryEscape(sellerID),
		BackURLs: &mercadopago.BackURLs{
			Success: input.SuccessURL,
			Pending: input.PendingURL,
			Failure: input.FailureURL,
		},
		Payer: &mercadopago.Payer{
			Name:  input.CustomerName,
			Email: input.CustomerEmail,
		},
		// Redundant with external_reference, but it survives on the
		// payment record even when the reference gets stripped.
		Metadata: map[string]any{
			"order_reference": reference,
			"seller":          sellerID,
		},
	}

	pref, err := s.gateway.CreatePreference(ctx, token, req)
	if err != nil {
		return nil, err
	}

	_, err = s.orders.Create(ctx, orders.CreateInput{
		Reference:     reference,
		SellerID:      sellerID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Items:         orderItems,
		ClientTotal:   input.ClientTotal,
		PreferenceID:  pref.ID,
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Reference:    reference,
		PreferenceID: pref.ID,
		CheckoutURL:  pref.InitPoint,
	}, nil
}

// FetchPayment retrieves the authoritative payment record for the seller.
func (s *service) FetchPayment(ctx context.Context, sellerID, paymentID string) (*mercadopago.Payment, error) {
	token, err := s.resolveToken(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetPayment(ctx, token, paymentID)
}

// resolveToken walks the credential chain: the seller's stored access
// token, then a refresh through the stored refresh token, then the
// process-wide fallback. A refreshed token is persisted before use.
func (s *service) resolveToken(ctx context.Context, sellerID string) (string, error) {
	seller, err := s.credentials.FindByEmail(ctx, sellerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller credentials")
	}

	if seller != nil {
		if seller.MPAccessToken != "" && !tokenExpired(seller.MPTokenExpiresAt) {
			return seller.MPAccessToken, nil
		}
		if seller.MPRefreshToken != "" {
			tok, refreshErr := s.gateway.RefreshToken(ctx, seller.MPRefreshToken)
			if refreshErr == nil {
				expiresAt := time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
				if err := s.credentials.SaveTokens(ctx, sellerID, tok.AccessToken, tok.RefreshToken, &expiresAt); err != nil {
					return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: persist refreshed token")
				}
				return tok.AccessToken, nil
			}
			s.log.Warn(s.log.WithSellerID(ctx, sellerID), "gateway token refresh failed, falling back")
		}
	}

	if s.cfg.FallbackToken != "" {
		return s.cfg.FallbackToken, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "no gateway credentials available for seller")
}

func tokenExpired(expiresAt *time.Time) bool {
	if expiresAt == nil {
		return false
	}
	// A small skew so a token about to lapse is refreshed early.
	return time.Now().UTC().After(expiresAt.Add(-1 * time.Minute))
}

func lineTitle(line CheckoutLine) string {
	title := strings.TrimSpace(line.Title)
	if title == "" {
		title = "Producto"
	}
	var suffix []string
	if line.Size != "" {
		suffix = append(suffix, "Talle: "+line.Size)
	}
	if line.Color != "" {
		suffix = append(suffix, "Color: "+line.Color)
	}
	if len(suffix) == 0 {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, strings.Join(suffix, ", "))
}

func minorUnitsToAmount(cents int) float64 {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).InexactFloat64()
}
