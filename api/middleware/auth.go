package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jarafer/armatutienda-backend/api/responses"
	"github.com/jarafer/armatutienda-backend/pkg/auth"
	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type sellerCtxKey struct{}

// SellerAuth validates the Bearer session token and puts the seller email
// on the request context.
func SellerAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := auth.ParseSellerToken(cfg, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session token"))
				return
			}

			ctx = context.WithValue(ctx, sellerCtxKey{}, claims.SellerEmail)
			if logg != nil {
				ctx = logg.WithSellerID(ctx, claims.SellerEmail)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SellerFromContext returns the authenticated seller email.
func SellerFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(sellerCtxKey{}).(string)
	return email, ok && email != ""
}
