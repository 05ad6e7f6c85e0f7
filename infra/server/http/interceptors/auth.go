package interceptors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webitel/hose-relay/internal/domain/model"
	"github.com/webitel/hose-relay/internal/service"
)

type contextKey string

const (
	// AuthContextKey is the key used to store/retrieve the Account from context
	AuthContextKey contextKey = "auth_account"
)

// NewAuthInterceptor creates a middleware that checks the bearer token
// before the request reaches the handler.
func NewAuthInterceptor(auther service.Auther, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH] Validate identity before allowing the upgrade
			account, err := auther.Inspect(r.Context(), BearerToken(r))
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, service.ErrAuthServiceFailure) || errors.Is(err, service.ErrAuthNotConfigured) {
					status = http.StatusServiceUnavailable
				}
				logger.Warn("SUBSCRIBER_AUTH_REJECTED", "remote_addr", r.RemoteAddr, "err", err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			// [ENRICHMENT] Inject the identity into the context for downstream handlers
			ctx := context.WithValue(r.Context(), AuthContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetAccount is a helper to extract the identity from context safely.
func GetAccount(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(AuthContextKey).(*model.Account)
	return account, ok
}
