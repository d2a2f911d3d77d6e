package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
)

func newReviewTestFixture(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:           "rev-1",
		UserID:       "u-1234",
		CoffeeShopID: "shop-1",
		Rating:       5,
		Comment:      "best cortado in Malasana",
		Timestamp:    "2026-08-28T10:00:00Z",
	}
}

func reviewColumns() []string {
	return []string{"id", "user_id", "coffee_shop_id", "rating", "comment", "timestamp"}
}

func reviewRow(rv *domain.Review) *pgxmock.Rows {
	return pgxmock.NewRows(reviewColumns()).AddRow(
		rv.ID, rv.UserID, rv.CoffeeShopID, rv.Rating, rv.Comment, rv.Timestamp,
	)
}

func TestReviewRepository_GetByUserAndShop_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM coffee_reviews WHERE user_id =").
		WithArgs(rv.UserID, rv.CoffeeShopID).
		WillReturnRows(reviewRow(rv))

	got, err := repo.GetByUserAndShop(context.Background(), rv.UserID, rv.CoffeeShopID)
	require.NoError(t, err)
	assert.Equal(t, rv, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByUserAndShop_NotFound(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coffee_reviews WHERE user_id =").
		WithArgs("u-1234", "ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByUserAndShop(context.Background(), "u-1234", "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetAggregate_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM aggregated_ratings").
		WithArgs("shop-1").
		WillReturnRows(pgxmock.NewRows([]string{"coffee_shop_id", "aggregated_rating", "total_reviews"}).
			AddRow("shop-1", 4.333, 3))

	agg, err := repo.GetAggregate(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, 4.333, agg.Rating)
	assert.Equal(t, 3, agg.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateWithAggregate_FirstReview(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	agg := domain.FirstRating(rv.CoffeeShopID, rv.Rating)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_reviews").
		WithArgs(rv.ID, rv.UserID, rv.CoffeeShopID, rv.Rating, rv.Comment, rv.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO aggregated_ratings").
		WithArgs(agg.CoffeeShopID, agg.Rating, agg.Count).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.CreateWithAggregate(context.Background(), rv, agg, true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateWithAggregate_SubsequentReview(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	agg := domain.RatingAggregate{CoffeeShopID: rv.CoffeeShopID, Rating: 3, Count: 2}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_reviews").
		WithArgs(rv.ID, rv.UserID, rv.CoffeeShopID, rv.Rating, rv.Comment, rv.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE aggregated_ratings").
		WithArgs(agg.Rating, agg.Count, agg.CoffeeShopID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.CreateWithAggregate(context.Background(), rv, agg, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateWithAggregate_Duplicate(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	agg := domain.FirstRating(rv.CoffeeShopID, rv.Rating)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_reviews").
		WithArgs(rv.ID, rv.UserID, rv.CoffeeShopID, rv.Rating, rv.Comment, rv.Timestamp).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))
	mock.ExpectRollback()

	err := repo.CreateWithAggregate(context.Background(), rv, agg, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateWithAggregate_AggregateFailureRollsBack(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	agg := domain.FirstRating(rv.CoffeeShopID, rv.Rating)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_reviews").
		WithArgs(rv.ID, rv.UserID, rv.CoffeeShopID, rv.Rating, rv.Comment, rv.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO aggregated_ratings").
		WithArgs(agg.CoffeeShopID, agg.Rating, agg.Count).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CreateWithAggregate(context.Background(), rv, agg, true)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_UpdateWithAggregate_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	rv.Rating = 3
	agg := domain.RatingAggregate{CoffeeShopID: rv.CoffeeShopID, Rating: 2, Count: 2}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coffee_reviews").
		WithArgs(rv.Rating, rv.Comment, rv.Timestamp, rv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE aggregated_ratings").
		WithArgs(agg.Rating, agg.Count, agg.CoffeeShopID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.UpdateWithAggregate(context.Background(), rv, agg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_UpdateWithAggregate_ReviewMissing(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	agg := domain.RatingAggregate{CoffeeShopID: rv.CoffeeShopID, Rating: 2, Count: 2}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coffee_reviews").
		WithArgs(rv.Rating, rv.Comment, rv.Timestamp, rv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.UpdateWithAggregate(context.Background(), rv, agg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_DeleteWithAggregate_KeepAggregate(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	agg := domain.RatingAggregate{CoffeeShopID: "shop-1", Rating: 3, Count: 1}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM coffee_reviews WHERE id").
		WithArgs("rev-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE aggregated_ratings").
		WithArgs(agg.Rating, agg.Count, agg.CoffeeShopID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.DeleteWithAggregate(context.Background(), "rev-1", agg, true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_DeleteWithAggregate_LastReviewDropsAggregate(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	agg := domain.RatingAggregate{CoffeeShopID: "shop-1"}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM coffee_reviews WHERE id").
		WithArgs("rev-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM aggregated_ratings WHERE coffee_shop_id").
		WithArgs("shop-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := repo.DeleteWithAggregate(context.Background(), "rev-1", agg, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByShop(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM coffee_reviews WHERE coffee_shop_id =").
		WithArgs(rv.CoffeeShopID).
		WillReturnRows(reviewRow(rv))

	reviews, err := repo.ListByShop(context.Background(), rv.CoffeeShopID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, *rv, reviews[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
