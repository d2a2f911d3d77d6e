package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/auth"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/event"
)

// --- Mock User Repository ---

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

// --- Mock Shop Repository ---

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

// --- Mock Review Repository ---

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

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute)
}

// newTestEventProducer returns a producer with no Kafka writer; publishing is a no-op.
func newTestEventProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}

func testIdentity() domain.Identity {
	return domain.Identity{Username: "amasini", UserID: "u-1234"}
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
