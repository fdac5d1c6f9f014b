package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jarafer/armatutienda-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// SellerClaims is the JWT payload for an authenticated seller session.
type SellerClaims struct {
	SellerEmail string `json:"seller_email"`
	jwt.RegisteredClaims
}

// MintSellerToken issues a signed JWT for the seller using the configured TTL.
func MintSellerToken(cfg config.JWTConfig, now time.Time, sellerEmail string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	sellerEmail = strings.TrimSpace(strings.ToLower(sellerEmail))
	if sellerEmail == "" {
		return "", fmt.Errorf("seller email is required")
	}

	claims := SellerClaims{
		SellerEmail: sellerEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration())),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseSellerToken validates the signature and expiry and returns the claims.
func ParseSellerToken(cfg config.JWTConfig, raw string) (*SellerClaims, error) {
	claims := &SellerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SellerEmail == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
