package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jarafer/armatutienda-backend/api/responses"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type loginCounterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// LoginThrottlePolicy caps login and registration attempts per IP and per
// email inside a fixed window. A zero limit disables that counter.
type LoginThrottlePolicy struct {
	Surface    string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p LoginThrottlePolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p LoginThrottlePolicy) surface() string {
	s := strings.ToLower(strings.TrimSpace(p.Surface))
	if s == "" {
		return "login"
	}
	return s
}

// LoginThrottle blocks credential-guessing bursts against the seller auth
// endpoints. The email is hashed before it becomes a counter key.
func LoginThrottle(policy LoginThrottlePolicy, store loginCounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.IPLimit > 0 {
				if ip := requestIP(r); ip != "" {
					key := fmt.Sprintf("rl:ip:%s:%s", policy.surface(), ip)
					allowed, count, err := countAttempt(ctx, store, key, policy.Window, int64(policy.IPLimit))
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						throttled(ctx, logg, w, policy, "ip", count)
						return
					}
				}
			}

			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := emailFromBody(body); email != "" {
					sum := sha256.Sum256([]byte(email))
					key := fmt.Sprintf("rl:email:%s:%s", policy.surface(), hex.EncodeToString(sum[:]))
					allowed, count, err := countAttempt(ctx, store, key, policy.Window, int64(policy.EmailLimit))
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						throttled(ctx, logg, w, policy, "email", count)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func countAttempt(ctx context.Context, store loginCounterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func throttled(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy LoginThrottlePolicy, scope string, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"surface":        policy.surface(),
			"scope":          scope,
			"attempts":       count,
			"window_seconds": int(policy.Window.Seconds()),
		})
		logg.Warn(logCtx, "auth.throttled")
	}
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts"))
}

func requestIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}
