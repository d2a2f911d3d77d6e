package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	pkgkafka "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/kafka"
)

// Kafka topic constants for directory domain events.
const (
	TopicUserRegistered = "coffee.user.registered"
	TopicShopCreated    = "coffee.shop.created"
	TopicShopDeleted    = "coffee.shop.deleted"
	TopicReviewCreated  = "coffee.review.created"
	TopicReviewUpdated  = "coffee.review.updated"
	TopicReviewDeleted  = "coffee.review.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser = "user"
	AggregateTypeShop = "coffee_shop"
)

// Source identifier for events originating from this service.
const Source = "coffee-directory"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ShopData is the payload for shop.created and shop.deleted events. UserID is
// nil for seeded shops.
type ShopData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	UserID *string `json:"user_id"`
}

// ReviewData is the payload for review lifecycle events. Rating carries the
// review's rating and Aggregate the shop's post-write summary.
type ReviewData struct {
	ReviewID     string   `json:"review_id"`
	CoffeeShopID string   `json:"coffee_shop_id"`
	UserID       string   `json:"user_id"`
	Rating       int      `json:"rating,omitempty"`
	Aggregate    *float64 `json:"aggregated_rating,omitempty"`
	TotalReviews int      `json:"total_reviews"`
}

// Producer publishes directory domain events to Kafka. A nil Producer is a
// no-op, so callers can skip nil checks when eventing is disabled.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// PublishShopCreated publishes a shop.created event.
func (p *Producer) PublishShopCreated(ctx context.Context, shop *domain.Shop) error {
	return p.publish(ctx, TopicShopCreated, shop.ID, AggregateTypeShop, ShopData{
		ID:     shop.ID,
		Name:   shop.Name,
		UserID: shop.UserID,
	})
}

// PublishShopDeleted publishes a shop.deleted event.
func (p *Producer) PublishShopDeleted(ctx context.Context, shop *domain.Shop) error {
	return p.publish(ctx, TopicShopDeleted, shop.ID, AggregateTypeShop, ShopData{
		ID:     shop.ID,
		Name:   shop.Name,
		UserID: shop.UserID,
	})
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review, agg domain.RatingAggregate) error {
	return p.publish(ctx, TopicReviewCreated, review.CoffeeShopID, AggregateTypeShop, ReviewData{
		ReviewID:     review.ID,
		CoffeeShopID: review.CoffeeShopID,
		UserID:       review.UserID,
		Rating:       review.Rating,
		Aggregate:    &agg.Rating,
		TotalReviews: agg.Count,
	})
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review, agg domain.RatingAggregate) error {
	return p.publish(ctx, TopicReviewUpdated, review.CoffeeShopID, AggregateTypeShop, ReviewData{
		ReviewID:     review.ID,
		CoffeeShopID: review.CoffeeShopID,
		UserID:       review.UserID,
		Rating:       review.Rating,
		Aggregate:    &agg.Rating,
		TotalReviews: agg.Count,
	})
}

// PublishReviewDeleted publishes a review.deleted event. When the deleted
// review was the shop's last one, agg is nil.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review, agg *domain.RatingAggregate) error {
	data := ReviewData{
		ReviewID:     review.ID,
		CoffeeShopID: review.CoffeeShopID,
		UserID:       review.UserID,
	}
	if agg != nil {
		data.Aggregate = &agg.Rating
		data.TotalReviews = agg.Count
	}
	return p.publish(ctx, TopicReviewDeleted, review.CoffeeShopID, AggregateTypeShop, data)
}
