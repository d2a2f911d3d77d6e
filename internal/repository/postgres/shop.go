package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/database"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
)

const shopColumns = `s.id, s.name, s.address, s.wifi_quality, s.has_ac, s.laptop_friendly_seats,
	       s.dog_friendly, s.noise_level, s.outlet_availability, s.user_id, s.created_at,
	       a.aggregated_rating, COALESCE(a.total_reviews, 0)`

// ShopRepository implements repository.ShopRepository using PostgreSQL.
type ShopRepository struct {
	pool database.DBTX
}

// NewShopRepository creates a new PostgreSQL-backed shop repository.
func NewShopRepository(pool database.DBTX) *ShopRepository {
	return &ShopRepository{pool: pool}
}

// Create inserts a new coffee shop into the database.
func (r *ShopRepository) Create(ctx context.Context, s *domain.Shop) error {
	query := `
		INSERT INTO coffee_shops (id, name, normalized_name, address, wifi_quality, has_ac,
			laptop_friendly_seats, dog_friendly, noise_level, outlet_availability, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.NormalizedName,
		s.Address,
		s.WifiQuality,
		s.HasAC,
		s.LaptopFriendlySeats,
		s.DogFriendly,
		s.NoiseLevel,
		s.OutletAvailability,
		s.UserID,
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("Coffee shop already exists")
		}
		return fmt.Errorf("insert coffee shop: %w", err)
	}

	return nil
}

func scanShopWithRating(row pgx.Row) (*domain.ShopWithRating, error) {
	var sw domain.ShopWithRating
	err := row.Scan(
		&sw.ID,
		&sw.Name,
		&sw.Address,
		&sw.WifiQuality,
		&sw.HasAC,
		&sw.LaptopFriendlySeats,
		&sw.DogFriendly,
		&sw.NoiseLevel,
		&sw.OutletAvailability,
		&sw.UserID,
		&sw.CreatedAt,
		&sw.Rating,
		&sw.Count,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan coffee shop: %w", err)
	}
	sw.NormalizedName = domain.NormalizeName(sw.Name)
	return &sw, nil
}

// GetByNormalizedName retrieves a shop with its rating summary. Shops with no
// reviews scan a NULL rating and a zero count.
func (r *ShopRepository) GetByNormalizedName(ctx context.Context, normalized string) (*domain.ShopWithRating, error) {
	query := `
		SELECT ` + shopColumns + `
		FROM coffee_shops s
		LEFT JOIN aggregated_ratings a ON a.coffee_shop_id = s.id
		WHERE s.normalized_name = $1`

	return scanShopWithRating(r.pool.QueryRow(ctx, query, normalized))
}

// List returns shops matching the filter, each with its rating summary.
// Filter predicates combine conjunctively; the min-rating predicate compares
// against the aggregate, so unrated shops never satisfy it.
func (r *ShopRepository) List(ctx context.Context, filter domain.ShopFilter) ([]domain.ShopWithRating, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.WifiQuality != nil {
		conditions = append(conditions, fmt.Sprintf("s.wifi_quality >= $%d", argIndex))
		args = append(args, *filter.WifiQuality)
		argIndex++
	}
	if filter.HasAC != nil {
		conditions = append(conditions, fmt.Sprintf("s.has_ac = $%d", argIndex))
		args = append(args, *filter.HasAC)
		argIndex++
	}
	if filter.LaptopFriendlySeats != nil {
		conditions = append(conditions, fmt.Sprintf("s.laptop_friendly_seats >= $%d", argIndex))
		args = append(args, *filter.LaptopFriendlySeats)
		argIndex++
	}
	if filter.DogFriendly != nil {
		conditions = append(conditions, fmt.Sprintf("s.dog_friendly = $%d", argIndex))
		args = append(args, *filter.DogFriendly)
		argIndex++
	}
	if filter.NoiseLevel != nil {
		conditions = append(conditions, fmt.Sprintf("s.noise_level <= $%d", argIndex))
		args = append(args, *filter.NoiseLevel)
		argIndex++
	}
	if filter.OutletAvailability != nil {
		conditions = append(conditions, fmt.Sprintf("s.outlet_availability >= $%d", argIndex))
		args = append(args, *filter.OutletAvailability)
		argIndex++
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("a.aggregated_rating >= $%d", argIndex))
		args = append(args, *filter.MinRating)
		argIndex++
	}

	query := `
		SELECT ` + shopColumns + `
		FROM coffee_shops s
		LEFT JOIN aggregated_ratings a ON a.coffee_shop_id = s.id`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list coffee shops: %w", err)
	}
	defer rows.Close()

	var shops []domain.ShopWithRating
	for rows.Next() {
		sw, err := scanShopWithRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coffee shop row: %w", err)
		}
		shops = append(shops, *sw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coffee shop rows: %w", err)
	}

	return shops, nil
}

// DeleteCascade removes a shop together with its reviews and aggregate row in
// a single transaction. Children are deleted first so the routine does not
// depend on FK cascade behavior.
func (r *ShopRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM coffee_reviews WHERE coffee_shop_id = $1`, id); err != nil {
		return fmt.Errorf("delete shop reviews: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM aggregated_ratings WHERE coffee_shop_id = $1`, id); err != nil {
		return fmt.Errorf("delete shop aggregate: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM coffee_shops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coffee shop: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundMsg("Coffee shop not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
