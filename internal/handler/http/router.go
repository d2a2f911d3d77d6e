package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/auth"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/service"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/health"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/middleware"
)

// NewRouter creates a chi router with all directory routes registered.
func NewRouter(
	shopService *service.ShopService,
	reviewService *service.ReviewService,
	userService *service.UserService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("coffee-directory"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("coffee-directory"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		identity, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   identity.UserID,
			Username: identity.Username,
		}, nil
	}

	authHandler := NewAuthHandler(userService, logger)
	r.Route("/auth", func(r chi.Router) {
		// The token endpoint takes form-encoded credentials, so the JSON
		// content-type gate applies only to the JSON routes.
		r.Post("/token", authHandler.IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/", authHandler.Register)
		})

		r.Get("/{username}", authHandler.GetProfile)
	})

	shopHandler := NewShopHandler(shopService, logger)
	r.Route("/coffee-shops", func(r chi.Router) {
		r.Get("/", shopHandler.List)
		r.Get("/all", shopHandler.ListAll)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/", shopHandler.Create)
			})
			r.Delete("/{name}", shopHandler.Delete)
		})
	})

	reviewHandler := NewReviewHandler(reviewService, logger)
	r.Route("/reviews", func(r chi.Router) {
		r.Get("/{shopName}", reviewHandler.ListByShop)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/", reviewHandler.Create)
				r.Put("/", reviewHandler.Update)
			})
			r.Delete("/{shopName}", reviewHandler.Delete)
		})
	})

	return r
}
