package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/database"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// Every write pairs the review mutation with the matching aggregate mutation
// inside one transaction, so readers never observe a half-applied pair.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// GetByUserAndShop retrieves the given user's review for a shop.
func (r *ReviewRepository) GetByUserAndShop(ctx context.Context, userID, shopID string) (*domain.Review, error) {
	query := `
		SELECT id, user_id, coffee_shop_id, rating, comment, timestamp
		FROM coffee_reviews
		WHERE user_id = $1 AND coffee_shop_id = $2`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, userID, shopID).Scan(
		&rv.ID,
		&rv.UserID,
		&rv.CoffeeShopID,
		&rv.Rating,
		&rv.Comment,
		&rv.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// ListByShop returns all reviews for a shop, newest first.
func (r *ReviewRepository) ListByShop(ctx context.Context, shopID string) ([]domain.Review, error) {
	query := `
		SELECT id, user_id, coffee_shop_id, rating, comment, timestamp
		FROM coffee_reviews
		WHERE coffee_shop_id = $1
		ORDER BY timestamp DESC`

	rows, err := r.pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&rv.CoffeeShopID,
			&rv.Rating,
			&rv.Comment,
			&rv.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// GetAggregate retrieves the rating aggregate for a shop.
func (r *ReviewRepository) GetAggregate(ctx context.Context, shopID string) (*domain.RatingAggregate, error) {
	query := `
		SELECT coffee_shop_id, aggregated_rating, total_reviews
		FROM aggregated_ratings
		WHERE coffee_shop_id = $1`

	var agg domain.RatingAggregate
	err := r.pool.QueryRow(ctx, query, shopID).Scan(
		&agg.CoffeeShopID,
		&agg.Rating,
		&agg.Count,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan aggregate: %w", err)
	}

	return &agg, nil
}

// CreateWithAggregate inserts a review and upserts the aggregate in one
// transaction. When first is true the shop has no aggregate row yet.
func (r *ReviewRepository) CreateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, first bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO coffee_reviews (id, user_id, coffee_shop_id, rating, comment, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID,
		review.UserID,
		review.CoffeeShopID,
		review.Rating,
		review.Comment,
		review.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("A review by the current user already exists. Please update it instead.")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if first {
		_, err = tx.Exec(ctx, `
			INSERT INTO aggregated_ratings (coffee_shop_id, aggregated_rating, total_reviews)
			VALUES ($1, $2, $3)`,
			agg.CoffeeShopID, agg.Rating, agg.Count,
		)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE aggregated_ratings
			SET aggregated_rating = $1, total_reviews = $2
			WHERE coffee_shop_id = $3`,
			agg.Rating, agg.Count, agg.CoffeeShopID,
		)
	}
	if err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// UpdateWithAggregate updates a review in place and rewrites the aggregate in
// one transaction.
func (r *ReviewRepository) UpdateWithAggregate(ctx context.Context, review *domain.Review, agg domain.RatingAggregate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE coffee_reviews
		SET rating = $1, comment = $2, timestamp = $3
		WHERE id = $4`,
		review.Rating,
		review.Comment,
		review.Timestamp,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundMsg("Review not found. Please create review instead.")
	}

	_, err = tx.Exec(ctx, `
		UPDATE aggregated_ratings
		SET aggregated_rating = $1, total_reviews = $2
		WHERE coffee_shop_id = $3`,
		agg.Rating, agg.Count, agg.CoffeeShopID,
	)
	if err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteWithAggregate deletes a review and either updates or removes the
// aggregate in one transaction. When keep is false the deleted review was the
// shop's last one, so the aggregate row goes with it.
func (r *ReviewRepository) DeleteWithAggregate(ctx context.Context, reviewID string, agg domain.RatingAggregate, keep bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `DELETE FROM coffee_reviews WHERE id = $1`, reviewID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundMsg("Review not found.")
	}

	if keep {
		_, err = tx.Exec(ctx, `
			UPDATE aggregated_ratings
			SET aggregated_rating = $1, total_reviews = $2
			WHERE coffee_shop_id = $3`,
			agg.Rating, agg.Count, agg.CoffeeShopID,
		)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM aggregated_ratings WHERE coffee_shop_id = $1`, agg.CoffeeShopID)
	}
	if err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
