package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// identityFromRequest rebuilds the caller's identity from the claims the auth
// middleware stored on the request context.
func identityFromRequest(r *http.Request) domain.Identity {
	return domain.Identity{
		Username: middleware.UsernameFromContext(r.Context()),
		UserID:   middleware.UserIDFromContext(r.Context()),
	}
}

// pathParam reads a chi URL parameter and percent-decodes it. Shop names in
// paths routinely contain encoded spaces.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
