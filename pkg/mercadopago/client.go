package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

// Client talks to the Mercado Pago REST API. Tokens are passed per call
// because each seller holds their own credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        config.MercadoPagoConfig
	log        *logger.Logger
}

// NewClient builds the gateway client from config.
func NewClient(cfg config.MercadoPagoConfig, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mercadopago base url is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}, nil
}

// CreatePreference registers a checkout preference under the seller's token.
func (c *Client) CreatePreference(ctx context.Context, accessToken string, req PreferenceRequest) (*Preference, error) {
	if accessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing gateway access token")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", accessToken, req, &pref); err != nil {
		return nil, err
	}

	logCtx := c.log.WithFields(ctx, map[string]any{
		"preference_id":      pref.ID,
		"external_reference": pref.ExternalReference,
	})
	c.log.Info(logCtx, "preference created")
	return &pref, nil
}

// GetPayment fetches the authoritative payment record by id.
func (c *Client) GetPayment(ctx context.Context, accessToken, paymentID string) (*Payment, error) {
	if accessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing gateway access token")
	}
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var payment Payment
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway oauth credentials not configured")
	}
	if refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh token is required")
	}

	body := map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"refresh_token": refreshToken,
	}

	var tok TokenResponse
	if err := c.do(ctx, http.MethodPost, "/oauth/token", "", body, &tok); err != nil {
		return nil, err
	}

	c.log.Info(ctx, "gateway token refreshed")
	return &tok, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode >= 400 {
		return c.mapError(ctx, method, path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
		}
	}
	return nil
}

func (c *Client) mapError(ctx context.Context, method, path string, status int, raw []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	message := apiErr.Message
	if message == "" {
		message = apiErr.Error
	}
	if message == "" {
		message = "gateway request failed"
	}

	logCtx := c.log.WithFields(ctx, map[string]any{
		"method": method,
		"path":   path,
		"status": status,
	})
	c.log.Warn(logCtx, "gateway error response")

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("gateway rejected credentials: %s", message))
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("gateway resource not found: %s", message))
	case status == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "gateway rate limit hit")
	case status >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway unavailable: %s", message))
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway rejected request: %s", message))
	}
}
