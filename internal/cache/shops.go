package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
)

const keyPrefix = "shops:"

// ShopCache caches directory listings in Redis, keyed by the filter that
// produced them. Any shop or review write invalidates the whole listing
// namespace.
type ShopCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewShopCache creates a new Redis-backed listing cache.
func NewShopCache(client *redis.Client, ttl time.Duration) *ShopCache {
	return &ShopCache{
		client: client,
		ttl:    ttl,
	}
}

// filterKey builds a stable cache key from the filter's set predicates.
func filterKey(filter domain.ShopFilter) string {
	var parts []string
	if filter.WifiQuality != nil {
		parts = append(parts, "wifi="+strconv.Itoa(*filter.WifiQuality))
	}
	if filter.HasAC != nil {
		parts = append(parts, "ac="+strconv.FormatBool(*filter.HasAC))
	}
	if filter.LaptopFriendlySeats != nil {
		parts = append(parts, "seats="+strconv.Itoa(*filter.LaptopFriendlySeats))
	}
	if filter.DogFriendly != nil {
		parts = append(parts, "dog="+strconv.FormatBool(*filter.DogFriendly))
	}
	if filter.NoiseLevel != nil {
		parts = append(parts, "noise="+strconv.Itoa(*filter.NoiseLevel))
	}
	if filter.OutletAvailability != nil {
		parts = append(parts, "outlets="+strconv.Itoa(*filter.OutletAvailability))
	}
	if filter.MinRating != nil {
		parts = append(parts, "minrating="+strconv.FormatFloat(*filter.MinRating, 'f', -1, 64))
	}
	if len(parts) == 0 {
		return keyPrefix + "all"
	}
	sort.Strings(parts)
	return keyPrefix + strings.Join(parts, ":")
}

// Get retrieves a cached listing for the given filter. The second return
// value reports whether the listing was present.
func (c *ShopCache) Get(ctx context.Context, filter domain.ShopFilter) ([]domain.ShopWithRating, bool, error) {
	data, err := c.client.Get(ctx, filterKey(filter)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get shop listing: %w", err)
	}

	var shops []domain.ShopWithRating
	if err := json.Unmarshal(data, &shops); err != nil {
		return nil, false, fmt.Errorf("unmarshal shop listing: %w", err)
	}

	return shops, true, nil
}

// Set stores a listing for the given filter with the configured TTL.
func (c *ShopCache) Set(ctx context.Context, filter domain.ShopFilter, shops []domain.ShopWithRating) error {
	data, err := json.Marshal(shops)
	if err != nil {
		return fmt.Errorf("marshal shop listing: %w", err)
	}

	if err := c.client.Set(ctx, filterKey(filter), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set shop listing: %w", err)
	}

	return nil
}

// Invalidate drops all cached listings. Called after any shop or review write.
func (c *ShopCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan shop listings: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del shop listings: %w", err)
	}
	return nil
}
