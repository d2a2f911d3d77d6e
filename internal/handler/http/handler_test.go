package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/auth"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/event"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/service"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/health"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/httputil"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockShopRepository struct {
	mock.Mock
}

func (m *mockShopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *mockShopRepository) GetByNormalizedName(ctx context.Context, normalized string) (*domain.ShopWithRating, error) {
	args := m.Called(ctx, normalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShopWithRating), args.Error(1)
}

func (m *mockShopRepository) List(ctx context.Context, filter domain.ShopFilter) ([]domain.ShopWithRating, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ShopWithRating), args.Error(1)
}

func (m *mockShopRepository) DeleteCascade(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) GetByUserAndShop(ctx context.Context, userID, shopID string) (*domain.Review, error) {
	args := m.Called(ctx, userID, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByShop(ctx context.Context, shopID string) ([]domain.Review, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetAggregate(ctx context.Context, shopID string) (*domain.RatingAggregate, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingAggregate), args.Error(1)
}

func (m *mockReviewRepository) CreateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, first bool) error {
	args := m.Called(ctx, review, agg, first)
	return args.Error(0)
}

func (m *mockReviewRepository) UpdateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate) error {
	args := m.Called(ctx, review, agg)
	return args.Error(0)
}

func (m *mockReviewRepository) DeleteWithAggregate(ctx context.Context, reviewID string, agg domain.RatingAggregate, keep bool) error {
	args := m.Called(ctx, reviewID, agg, keep)
	return args.Error(0)
}

// ============================================================================
// Test fixture
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// handlerFixture wires the full production router over mock repositories.
type handlerFixture struct {
	userRepo   *mockUserRepository
	shopRepo   *mockShopRepository
	reviewRepo *mockReviewRepository
	jwt        *auth.JWTManager
	router     http.Handler
}

func newHandlerFixture() *handlerFixture {
	logger := testLogger()
	jwtManager := auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute)
	producer := event.NewProducer(nil, logger)

	userRepo := new(mockUserRepository)
	shopRepo := new(mockShopRepository)
	reviewRepo := new(mockReviewRepository)

	userService := service.NewUserService(userRepo, jwtManager, producer, logger)
	shopService := service.NewShopService(shopRepo, nil, producer, logger)
	reviewService := service.NewReviewService(reviewRepo, shopRepo, nil, producer, logger)

	router := NewRouter(shopService, reviewService, userService, jwtManager,
		health.NewHandler(), logger, middleware.DefaultCORSConfig())

	return &handlerFixture{
		userRepo:   userRepo,
		shopRepo:   shopRepo,
		reviewRepo: reviewRepo,
		jwt:        jwtManager,
		router:     router,
	}
}

// bearer returns an Authorization header value for the test identity.
func (f *handlerFixture) bearer(t *testing.T) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(domain.Identity{Username: "amasini", UserID: "u-1234"})
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *handlerFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}
