package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
)

type reviewTestFixture struct {
	reviewRepo *mockReviewRepository
	shopRepo   *mockShopRepository
	svc        *ReviewService
}

func newReviewTestFixture() *reviewTestFixture {
	reviewRepo := new(mockReviewRepository)
	shopRepo := new(mockShopRepository)
	svc := NewReviewService(reviewRepo, shopRepo, nil, newTestEventProducer(), newTestLogger())
	return &reviewTestFixture{reviewRepo: reviewRepo, shopRepo: shopRepo, svc: svc}
}

func (f *reviewTestFixture) shopExists(ctx context.Context) {
	f.shopRepo.On("GetByNormalizedName", ctx, "cafedelaluz").Return(sampleShopWithRating("u-9999"), nil)
}

func sampleReview(rating int) *domain.Review {
	return &domain.Review{
		ID:           "rev-1",
		UserID:       "u-1234",
		CoffeeShopID: "shop-1",
		Rating:       rating,
		Comment:      "great flat white",
		Timestamp:    "2026-08-10T09:00:00Z",
	}
}

func notFoundErr() error {
	return apperrors.NotFound("review", "rev-1")
}

func TestReviewService_Create(t *testing.T) {
	ctx := context.Background()
	identity := testIdentity()

	t.Run("first review seeds the aggregate", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(nil, notFoundErr())
		f.reviewRepo.On("GetAggregate", ctx, "shop-1").Return(nil, apperrors.NotFound("aggregate", "shop-1"))
		f.reviewRepo.On("CreateWithAggregate", ctx, mock.AnythingOfType("*domain.Review"),
			domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 5, Count: 1}, true).Return(nil)

		receipt, err := f.svc.Create(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 5, Comment: "great flat white"})

		require.NoError(t, err)
		assert.Equal(t, "Cafe de la Luz", receipt.ShopName)
		assert.Equal(t, 5, receipt.Review.Rating)
		assert.Equal(t, identity.UserID, receipt.Review.UserID)
		assert.True(t, receipt.AggregateKept)
		assert.Equal(t, 5.0, receipt.Aggregate.Rating)
		assert.Equal(t, 1, receipt.Aggregate.Count)
		f.reviewRepo.AssertExpectations(t)
	})

	t.Run("subsequent review folds into the aggregate", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(nil, notFoundErr())
		f.reviewRepo.On("GetAggregate", ctx, "shop-1").
			Return(&domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 5, Count: 2}, nil)
		f.reviewRepo.On("CreateWithAggregate", ctx, mock.AnythingOfType("*domain.Review"),
			domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 4.333, Count: 3}, false).Return(nil)

		receipt, err := f.svc.Create(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 3})

		require.NoError(t, err)
		assert.Equal(t, 4.333, receipt.Aggregate.Rating)
		assert.Equal(t, 3, receipt.Aggregate.Count)
		f.reviewRepo.AssertExpectations(t)
	})

	t.Run("rejects second review by the same user", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(sampleReview(4), nil)

		_, err := f.svc.Create(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 5})

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "A review by the current user already exists. Please update it instead.", appErr.Message)
		f.reviewRepo.AssertNotCalled(t, "CreateWithAggregate")
	})

	t.Run("reports unknown shop", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopRepo.On("GetByNormalizedName", ctx, "ghost").Return(nil, apperrors.NotFound("coffee shop", "ghost"))

		_, err := f.svc.Create(ctx, identity, ReviewInput{CoffeeShop: "ghost", Rating: 5})

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Coffee shop not found", appErr.Message)
	})

	t.Run("rejects rating out of range", func(t *testing.T) {
		f := newReviewTestFixture()

		_, err := f.svc.Create(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 6})

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		f.shopRepo.AssertNotCalled(t, "GetByNormalizedName")
	})

	t.Run("rejects oversized comment", func(t *testing.T) {
		f := newReviewTestFixture()

		_, err := f.svc.Create(ctx, identity, ReviewInput{
			CoffeeShop: "Cafe de la Luz",
			Rating:     4,
			Comment:    strings.Repeat("x", maxCommentLength+1),
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestReviewService_Update(t *testing.T) {
	ctx := context.Background()
	identity := testIdentity()

	t.Run("replaces rating and recomputes aggregate", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(sampleReview(5), nil)
		f.reviewRepo.On("GetAggregate", ctx, "shop-1").
			Return(&domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 4, Count: 2}, nil)
		f.reviewRepo.On("UpdateWithAggregate", ctx, mock.AnythingOfType("*domain.Review"),
			domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 3, Count: 2}).Return(nil)

		receipt, err := f.svc.Update(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 3, Comment: "gone downhill"})

		require.NoError(t, err)
		assert.Equal(t, "rev-1", receipt.Review.ID)
		assert.Equal(t, 3, receipt.Review.Rating)
		assert.Equal(t, "gone downhill", receipt.Review.Comment)
		assert.NotEqual(t, "2026-08-10T09:00:00Z", receipt.Review.Timestamp)
		assert.Equal(t, 3.0, receipt.Aggregate.Rating)
		assert.Equal(t, 2, receipt.Aggregate.Count)
		assert.True(t, receipt.AggregateKept)
		f.reviewRepo.AssertExpectations(t)
	})

	t.Run("reports missing review", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(nil, notFoundErr())

		_, err := f.svc.Update(ctx, identity, ReviewInput{CoffeeShop: "Cafe de la Luz", Rating: 3})

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Review not found. Please create review instead.", appErr.Message)
		f.reviewRepo.AssertNotCalled(t, "UpdateWithAggregate")
	})
}

func TestReviewService_Delete(t *testing.T) {
	ctx := context.Background()
	identity := testIdentity()

	t.Run("removes rating from surviving aggregate", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(sampleReview(5), nil)
		f.reviewRepo.On("GetAggregate", ctx, "shop-1").
			Return(&domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 4, Count: 3}, nil)
		f.reviewRepo.On("DeleteWithAggregate", ctx, "rev-1",
			domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 3.5, Count: 2}, true).Return(nil)

		receipt, err := f.svc.Delete(ctx, identity, "Cafe de la Luz")

		require.NoError(t, err)
		assert.True(t, receipt.AggregateKept)
		assert.Equal(t, 3.5, receipt.Aggregate.Rating)
		assert.Equal(t, 2, receipt.Aggregate.Count)
		f.reviewRepo.AssertExpectations(t)
	})

	t.Run("last review drops the aggregate row", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(sampleReview(4), nil)
		f.reviewRepo.On("GetAggregate", ctx, "shop-1").
			Return(&domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 4, Count: 1}, nil)
		f.reviewRepo.On("DeleteWithAggregate", ctx, "rev-1",
			domain.RatingAggregate{CoffeeShopID: "shop-1"}, false).Return(nil)

		receipt, err := f.svc.Delete(ctx, identity, "Cafe de la Luz")

		require.NoError(t, err)
		assert.False(t, receipt.AggregateKept)
		assert.Zero(t, receipt.Aggregate.Count)
		f.reviewRepo.AssertExpectations(t)
	})

	t.Run("reports missing review", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("GetByUserAndShop", ctx, identity.UserID, "shop-1").Return(nil, notFoundErr())

		_, err := f.svc.Delete(ctx, identity, "Cafe de la Luz")

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Review not found.", appErr.Message)
		f.reviewRepo.AssertNotCalled(t, "DeleteWithAggregate")
	})
}

func TestReviewService_ListByShop(t *testing.T) {
	ctx := context.Background()

	t.Run("returns reviews for the shop", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("ListByShop", ctx, "shop-1").Return([]domain.Review{*sampleReview(5), *sampleReview(3)}, nil)

		reviews, err := f.svc.ListByShop(ctx, "Cafe de la Luz")

		require.NoError(t, err)
		require.Len(t, reviews, 2)
		assert.Equal(t, 5, reviews[0].Rating)
	})

	t.Run("empty slice when shop has no reviews", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopExists(ctx)

		f.reviewRepo.On("ListByShop", ctx, "shop-1").Return([]domain.Review{}, nil)

		reviews, err := f.svc.ListByShop(ctx, "Cafe de la Luz")

		require.NoError(t, err)
		assert.Empty(t, reviews)
	})

	t.Run("reports unknown shop", func(t *testing.T) {
		f := newReviewTestFixture()
		f.shopRepo.On("GetByNormalizedName", ctx, "ghost").Return(nil, apperrors.NotFound("coffee shop", "ghost"))

		_, err := f.svc.ListByShop(ctx, "ghost")

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
		f.reviewRepo.AssertNotCalled(t, "ListByShop")
	})
}
