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

// ShopService implements the business logic for the shop directory.
type ShopService struct {
	shopRepo repository.ShopRepository
	cache    *cache.ShopCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewShopService creates a new shop service. The cache may be nil when the
// listing cache is disabled.
func NewShopService(
	shopRepo repository.ShopRepository,
	shopCache *cache.ShopCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ShopService {
	return &ShopService{
		shopRepo: shopRepo,
		cache:    shopCache,
		producer: producer,
		logger:   logger,
	}
}

// CreateShopInput holds the parameters for listing a new coffee shop. The
// ordinal attributes encode low/medium/high as 1/2/3.
type CreateShopInput struct {
	Name                string
	Address             string
	WifiQuality         int
	HasAC               bool
	LaptopFriendlySeats int
	DogFriendly         bool
	NoiseLevel          int
	OutletAvailability  int
}

func validOrdinal(v int) bool {
	return v >= 1 && v <= 3
}

// Create lists a new coffee shop owned by the caller. Names are deduplicated
// case- and whitespace-insensitively.
func (s *ShopService) Create(ctx context.Context, identity domain.Identity, input CreateShopInput) (*domain.Shop, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Address == "" {
		return nil, apperrors.InvalidInput("address is required")
	}
	for _, v := range []int{input.WifiQuality, input.LaptopFriendlySeats, input.NoiseLevel, input.OutletAvailability} {
		if !validOrdinal(v) {
			return nil, apperrors.InvalidInput("ordinal attributes must be between 1 and 3")
		}
	}

	ownerID := identity.UserID
	shop := &domain.Shop{
		ID:                  uuid.New().String(),
		Name:                input.Name,
		NormalizedName:      domain.NormalizeName(input.Name),
		Address:             input.Address,
		WifiQuality:         input.WifiQuality,
		HasAC:               input.HasAC,
		LaptopFriendlySeats: input.LaptopFriendlySeats,
		DogFriendly:         input.DogFriendly,
		NoiseLevel:          input.NoiseLevel,
		OutletAvailability:  input.OutletAvailability,
		UserID:              &ownerID,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("create coffee shop: %w", err)
	}

	s.invalidateListings(ctx)

	if err := s.producer.PublishShopCreated(ctx, shop); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shop.created event",
			slog.String("shop_id", shop.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coffee shop created",
		slog.String("shop_id", shop.ID),
		slog.String("name", shop.Name),
		slog.String("user_id", identity.UserID),
	)

	return shop, nil
}

// List returns shops matching the filter. Results for a given filter are
// served from the cache when present. An empty result is a valid outcome,
// not an error.
func (s *ShopService) List(ctx context.Context, filter domain.ShopFilter) ([]domain.ShopWithRating, error) {
	if s.cache != nil {
		if shops, ok, err := s.cache.Get(ctx, filter); err != nil {
			s.logger.WarnContext(ctx, "listing cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return shops, nil
		}
	}

	shops, err := s.shopRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list coffee shops: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, filter, shops); err != nil {
			s.logger.WarnContext(ctx, "listing cache write failed", slog.String("error", err.Error()))
		}
	}

	return shops, nil
}

// ListAll returns every shop in the directory with its rating summary.
func (s *ShopService) ListAll(ctx context.Context) ([]domain.ShopWithRating, error) {
	return s.List(ctx, domain.ShopFilter{})
}

// Delete removes the named shop and everything hanging off it. Only the user
// who listed the shop may delete it.
func (s *ShopService) Delete(ctx context.Context, identity domain.Identity, name string) error {
	shop, err := s.shopRepo.GetByNormalizedName(ctx, domain.NormalizeName(name))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFoundMsg("Coffee shop not found")
		}
		return fmt.Errorf("get coffee shop: %w", err)
	}

	if shop.UserID == nil || *shop.UserID != identity.UserID {
		return apperrors.Forbidden("You can only delete coffee shops you added")
	}

	if err := s.shopRepo.DeleteCascade(ctx, shop.ID); err != nil {
		return fmt.Errorf("delete coffee shop: %w", err)
	}

	s.invalidateListings(ctx)

	if err := s.producer.PublishShopDeleted(ctx, &shop.Shop); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shop.deleted event",
			slog.String("shop_id", shop.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coffee shop deleted",
		slog.String("shop_id", shop.ID),
		slog.String("name", shop.Name),
		slog.String("user_id", identity.UserID),
	)

	return nil
}

func (s *ShopService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "listing cache invalidation failed", slog.String("error", err.Error()))
	}
}
