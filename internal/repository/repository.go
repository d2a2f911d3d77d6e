package repository

import (
	"context"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByUsername retrieves a user by their username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// ShopRepository defines the interface for coffee shop persistence operations.
type ShopRepository interface {
	// Create inserts a new coffee shop into the store.
	Create(ctx context.Context, shop *domain.Shop) error

	// GetByNormalizedName retrieves a shop, with its rating summary, by the
	// normalized form of its display name.
	GetByNormalizedName(ctx context.Context, normalized string) (*domain.ShopWithRating, error)

	// List returns shops matching the filter, each with its rating summary.
	List(ctx context.Context, filter domain.ShopFilter) ([]domain.ShopWithRating, error)

	// DeleteCascade removes a shop together with its reviews and aggregate
	// row in a single transaction.
	DeleteCascade(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review persistence operations.
// The write methods pair the review mutation with the matching aggregate
// mutation inside one transaction.
type ReviewRepository interface {
	// GetByUserAndShop retrieves the caller's review for a shop, if any.
	GetByUserAndShop(ctx context.Context, userID, shopID string) (*domain.Review, error)

	// ListByShop returns all reviews for a shop.
	ListByShop(ctx context.Context, shopID string) ([]domain.Review, error)

	// GetAggregate retrieves the rating aggregate for a shop.
	GetAggregate(ctx context.Context, shopID string) (*domain.RatingAggregate, error)

	// CreateWithAggregate inserts a review and upserts the aggregate. When
	// first is true the aggregate row is inserted, otherwise updated.
	CreateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, first bool) error

	// UpdateWithAggregate updates a review in place and rewrites the aggregate.
	UpdateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate) error

	// DeleteWithAggregate deletes a review. When keep is true the aggregate
	// row is updated, otherwise it is removed.
	DeleteWithAggregate(ctx context.Context, reviewID string, agg domain.RatingAggregate, keep bool) error
}
