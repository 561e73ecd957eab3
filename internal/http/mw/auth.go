package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// requestKey extracts the API key from Authorization: Bearer, falling back
// to X-API-Key.
func requestKey(header func(string) string) string {
	const bearerPrefix = "Bearer "
	if key := header("Authorization"); strings.HasPrefix(key, bearerPrefix) {
		return key[len(bearerPrefix):]
	}
	return header("X-API-Key")
}

func keyMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// APIKeyAuth returns a Chi middleware that requires the configured key on
// every request. Used for raw routes such as the WebSocket upgrade that
// bypass Huma. An empty key disables authentication.
func APIKeyAuth(logger *slog.Logger, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestKey(r.Header.Get)
			if got == "" {
				logger.Warn("API key missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeProblem(w, http.StatusUnauthorized, "API key required")
				return
			}
			if !keyMatches(got, key) {
				logger.Warn("Invalid API key used",
					"key_prefix", keyPrefix(got),
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeProblem(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HumaAuth returns a Huma middleware that enforces the key only on
// operations declaring the SecurityScheme. Public routes pass through.
func HumaAuth(api huma.API, logger *slog.Logger, key string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if key == "" || !requiresAuth(ctx.Operation()) {
			next(ctx)
			return
		}
		got := requestKey(ctx.Header)
		if got == "" {
			logger.Warn("API key missing", "method", ctx.Method(), "path", ctx.URL().Path, "remote_addr", ctx.RemoteAddr())
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "API key required")
			return
		}
		if !keyMatches(got, key) {
			logger.Warn("Invalid API key used", "key_prefix", keyPrefix(got), "method", ctx.Method(), "path", ctx.URL().Path, "remote_addr", ctx.RemoteAddr())
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(ctx)
	}
}

func requiresAuth(op *huma.Operation) bool {
	if op == nil {
		return false
	}
	for _, req := range op.Security {
		if _, ok := req[SecurityScheme]; ok {
			return true
		}
	}
	return false
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
