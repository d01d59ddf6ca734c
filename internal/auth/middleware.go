package auth

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const (
	ctxIdentity contextKey = iota
	ctxRemoteIP
)

// RequestIdentity returns the authenticated caller, or false for an
// anonymous request.
func RequestIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

// RequestTier returns the caller's tier, or "" for an anonymous request.
func RequestTier(ctx context.Context) string {
	id, _ := RequestIdentity(ctx)
	return id.Tier
}

// RequestRemoteIP returns the client IP from the context, or "".
func RequestRemoteIP(ctx context.Context) string {
	v, _ := ctx.Value(ctxRemoteIP).(string)
	return v
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// Middleware validates Bearer API keys. A request that presents an
// invalid key is always rejected. When required is false, requests
// without an Authorization header pass through as anonymous.
func Middleware(store *Store, logger *slog.Logger, required bool) func(http.Handler) http.Handler {
	const wwwAuth = `Bearer realm="contentd"`
	const wwwAuthInvalid = `Bearer realm="contentd", error="invalid_token"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			ctx := context.WithValue(r.Context(), ctxRemoteIP, ip)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					logger.Debug("middleware: no bearer token",
						slog.String("ip", ip),
						slog.String("path", r.URL.Path),
					)
					w.Header().Set("WWW-Authenticate", wwwAuth)
					w.WriteHeader(http.StatusUnauthorized)

					return
				}

				next.ServeHTTP(w, r.WithContext(ctx))

				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				w.Header().Set("WWW-Authenticate", wwwAuth)
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			id, err := store.Validate(token)
			if err != nil {
				logger.Debug("middleware: invalid API key",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", wwwAuthInvalid)
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			logger.Debug("middleware: authenticated via API key",
				slog.String("user_id", id.UserID),
				slog.String("tier", id.Tier),
				slog.String("ip", ip),
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}
