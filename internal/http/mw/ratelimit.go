package mw

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/httprate"
)

// RateLimitByIP caps each client address at perMinute requests. A
// non-positive limit disables limiting. An encoder bridged over HTTP sends
// one request per detent, so the configured default leaves room for that.
// Rejections use the same problem+json body as the rest of the API.
func RateLimitByIP(logger *slog.Logger, perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path, "limit_per_minute", perMinute)
			writeProblem(w, http.StatusTooManyRequests, "too many requests; slow down")
		}),
	)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
