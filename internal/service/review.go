package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/cache"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/event"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/repository"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
)

// maxCommentLength bounds review comments.
const maxCommentLength = 100

// ReviewService implements the business logic for reviews and the rating
// aggregate that shadows them. Shops are addressed by display name; the
// service derives the normalized lookup key internally.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	shopRepo   repository.ShopRepository
	cache      *cache.ShopCache
	producer   *event.Producer
	logger     *slog.Logger
}

// NewReviewService creates a new review service. The cache may be nil when
// the listing cache is disabled.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	shopRepo repository.ShopRepository,
	shopCache *cache.ShopCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		shopRepo:   shopRepo,
		cache:      shopCache,
		producer:   producer,
		logger:     logger,
	}
}

// ReviewInput holds the parameters for submitting or replacing a review.
type ReviewInput struct {
	CoffeeShop string
	Rating     int
	Comment    string
}

// ReviewReceipt is the result of a review mutation: the written review, the
// shop's stored display name, and the post-write aggregate. AggregateKept is
// false when the mutation removed the shop's last review, in which case the
// aggregate row no longer exists.
type ReviewReceipt struct {
	Review        domain.Review
	ShopName      string
	Aggregate     domain.RatingAggregate
	AggregateKept bool
}

func (s *ReviewService) validateInput(input ReviewInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if len(input.Comment) > maxCommentLength {
		return apperrors.InvalidInput("comment must be at most 100 characters")
	}
	return nil
}

// resolveShop looks a shop up by display name via its normalized form.
func (s *ReviewService) resolveShop(ctx context.Context, name string) (*domain.ShopWithRating, error) {
	shop, err := s.shopRepo.GetByNormalizedName(ctx, domain.NormalizeName(name))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMsg("Coffee shop not found")
		}
		return nil, fmt.Errorf("get coffee shop: %w", err)
	}
	return shop, nil
}

// Create submits the caller's review for a shop and folds its rating into the
// aggregate in the same transaction. A user may hold only one review per shop.
func (s *ReviewService) Create(ctx context.Context, identity domain.Identity, input ReviewInput) (*ReviewReceipt, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	shop, err := s.resolveShop(ctx, input.CoffeeShop)
	if err != nil {
		return nil, err
	}

	if _, err := s.reviewRepo.GetByUserAndShop(ctx, identity.UserID, shop.ID); err == nil {
		return nil, apperrors.Conflict("A review by the current user already exists. Please update it instead.")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	review := domain.Review{
		ID:           uuid.New().String(),
		UserID:       identity.UserID,
		CoffeeShopID: shop.ID,
		Rating:       input.Rating,
		Comment:      input.Comment,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	agg, first, err := s.nextAggregateForCreate(ctx, shop.ID, input.Rating)
	if err != nil {
		return nil, err
	}

	if err := s.reviewRepo.CreateWithAggregate(ctx, &review, agg, first); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.invalidateListings(ctx)

	if err := s.producer.PublishReviewCreated(ctx, &review, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("shop_id", shop.ID),
		slog.Int("rating", review.Rating),
		slog.Float64("aggregated_rating", agg.Rating),
		slog.Int("total_reviews", agg.Count),
	)

	return &ReviewReceipt{Review: review, ShopName: shop.Name, Aggregate: agg, AggregateKept: true}, nil
}

// nextAggregateForCreate computes the aggregate transition for a new review.
func (s *ReviewService) nextAggregateForCreate(ctx context.Context, shopID string, rating int) (domain.RatingAggregate, bool, error) {
	current, err := s.reviewRepo.GetAggregate(ctx, shopID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.FirstRating(shopID, rating), true, nil
		}
		return domain.RatingAggregate{}, false, fmt.Errorf("get aggregate: %w", err)
	}
	return current.Add(rating), false, nil
}

// Update replaces the caller's existing review for a shop. The aggregate is
// recomputed from the rating swap; the count is unchanged.
func (s *ReviewService) Update(ctx context.Context, identity domain.Identity, input ReviewInput) (*ReviewReceipt, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	shop, err := s.resolveShop(ctx, input.CoffeeShop)
	if err != nil {
		return nil, err
	}

	existing, err := s.reviewRepo.GetByUserAndShop(ctx, identity.UserID, shop.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMsg("Review not found. Please create review instead.")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	current, err := s.reviewRepo.GetAggregate(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}

	agg := current.Replace(existing.Rating, input.Rating)

	updated := domain.Review{
		ID:           existing.ID,
		UserID:       existing.UserID,
		CoffeeShopID: existing.CoffeeShopID,
		Rating:       input.Rating,
		Comment:      input.Comment,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.reviewRepo.UpdateWithAggregate(ctx, &updated, agg); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.invalidateListings(ctx)

	if err := s.producer.PublishReviewUpdated(ctx, &updated, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID),
		slog.String("shop_id", shop.ID),
		slog.Int("rating", updated.Rating),
		slog.Float64("aggregated_rating", agg.Rating),
	)

	return &ReviewReceipt{Review: updated, ShopName: shop.Name, Aggregate: agg, AggregateKept: true}, nil
}

// Delete removes the caller's review for a shop. When it was the shop's last
// review the aggregate row is deleted with it.
func (s *ReviewService) Delete(ctx context.Context, identity domain.Identity, shopName string) (*ReviewReceipt, error) {
	shop, err := s.resolveShop(ctx, shopName)
	if err != nil {
		return nil, err
	}

	existing, err := s.reviewRepo.GetByUserAndShop(ctx, identity.UserID, shop.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMsg("Review not found.")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	current, err := s.reviewRepo.GetAggregate(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}

	agg, keep := current.Remove(existing.Rating)

	if err := s.reviewRepo.DeleteWithAggregate(ctx, existing.ID, agg, keep); err != nil {
		return nil, fmt.Errorf("delete review: %w", err)
	}

	s.invalidateListings(ctx)

	var published *domain.RatingAggregate
	if keep {
		published = &agg
	}
	if err := s.producer.PublishReviewDeleted(ctx, existing, published); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", existing.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", existing.ID),
		slog.String("shop_id", shop.ID),
		slog.Bool("aggregate_kept", keep),
	)

	return &ReviewReceipt{Review: *existing, ShopName: shop.Name, Aggregate: agg, AggregateKept: keep}, nil
}

// ListByShop returns all reviews for the named shop. An empty slice means the
// shop exists but has no reviews yet.
func (s *ReviewService) ListByShop(ctx context.Context, shopName string) ([]domain.Review, error) {
	shop, err := s.resolveShop(ctx, shopName)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByShop(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, nil
}

func (s *ReviewService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "listing cache invalidation failed", slog.String("error", err.Error()))
	}
}
