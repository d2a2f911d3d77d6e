package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
)

func setupTestCache(t *testing.T) (*ShopCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewShopCache(client, time.Minute), mr
}

func sampleListing() []domain.ShopWithRating {
	rating := 4.25
	return []domain.ShopWithRating{
		{
			Shop: domain.Shop{
				ID:                  "shop-1",
				Name:                "Cafe de la Luz",
				NormalizedName:      "cafedelaluz",
				Address:             "Calle de la Luna 12",
				WifiQuality:         3,
				HasAC:               true,
				LaptopFriendlySeats: 2,
				NoiseLevel:          1,
				OutletAvailability:  2,
			},
			Rating: &rating,
			Count:  4,
		},
	}
}

func intPtr(n int) *int { return &n }

func TestShopCache_GetMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	shops, ok, err := cache.Get(context.Background(), domain.ShopFilter{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, shops)
}

func TestShopCache_SetThenGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	listing := sampleListing()
	require.NoError(t, cache.Set(ctx, domain.ShopFilter{}, listing))

	got, ok, err := cache.Get(ctx, domain.ShopFilter{})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Cafe de la Luz", got[0].Name)
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, 4.25, *got[0].Rating)
	assert.Equal(t, 4, got[0].Count)
}

func TestShopCache_FilterKeysAreDistinct(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	ac := true
	filtered := domain.ShopFilter{WifiQuality: intPtr(2), HasAC: &ac}
	require.NoError(t, cache.Set(ctx, filtered, sampleListing()))

	// The unfiltered listing is a separate key and stays a miss.
	_, ok, err := cache.Get(ctx, domain.ShopFilter{})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.Get(ctx, filtered)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShopCache_FilterKeyOrderInsensitive(t *testing.T) {
	// The key derives from the set predicates, not the order they were
	// assigned, so equal filters always share an entry.
	ac := true
	a := domain.ShopFilter{WifiQuality: intPtr(2), HasAC: &ac, NoiseLevel: intPtr(1)}
	b := domain.ShopFilter{NoiseLevel: intPtr(1), HasAC: &ac, WifiQuality: intPtr(2)}
	assert.Equal(t, filterKey(a), filterKey(b))
}

func TestShopCache_Invalidate(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	ac := true
	require.NoError(t, cache.Set(ctx, domain.ShopFilter{}, sampleListing()))
	require.NoError(t, cache.Set(ctx, domain.ShopFilter{HasAC: &ac}, sampleListing()))

	// A key outside the listing namespace must survive invalidation.
	require.NoError(t, mr.Set("session:abc", "keep"))

	require.NoError(t, cache.Invalidate(ctx))

	_, ok, err := cache.Get(ctx, domain.ShopFilter{})
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, domain.ShopFilter{HasAC: &ac})
	require.NoError(t, err)
	assert.False(t, ok)

	kept, err := mr.Get("session:abc")
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}

func TestShopCache_InvalidateEmpty(t *testing.T) {
	cache, _ := setupTestCache(t)
	assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestShopCache_GetCorruptEntry(t *testing.T) {
	cache, mr := setupTestCache(t)

	require.NoError(t, mr.Set(keyPrefix+"all", "{not json"))

	_, _, err := cache.Get(context.Background(), domain.ShopFilter{})
	assert.Error(t, err)
}

func TestShopCache_EntryExpires(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, domain.ShopFilter{}, sampleListing()))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, domain.ShopFilter{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShopCache_RoundTripPreservesJSONShape(t *testing.T) {
	// Guard against the cache layer altering the listing encoding.
	listing := sampleListing()
	data, err := json.Marshal(listing)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"aggregated_rating":4.25`)
	assert.NotContains(t, string(data), "normalized_name")
}
