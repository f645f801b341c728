package search

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdex/partdex/pkg/catalog"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisFacetCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisFacetCache(mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisFacetCache_RoundTrip(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)

	facets := &catalog.DynamicFacets{
		Brands:        []catalog.FacetBucket{{Value: "Toyota", Count: 70}},
		PriceRange:    &catalog.PriceRange{Min: 9.5, Max: 199},
		TotalFiltered: 100,
	}
	cache.Put("k", facets)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 100, got.TotalFiltered)
	require.Len(t, got.Brands, 1)
	assert.Equal(t, "Toyota", got.Brands[0].Value)
	require.NotNil(t, got.PriceRange)
	assert.Equal(t, 9.5, got.PriceRange.Min)
}

func TestRedisFacetCache_Miss(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)

	_, ok := cache.Get("missing")
	assert.False(t, ok)
}

func TestRedisFacetCache_TTLExpiry(t *testing.T) {
	cache, mr := newRedisCache(t, time.Second)

	cache.Put("k", &catalog.DynamicFacets{TotalFiltered: 1})
	_, ok := cache.Get("k")
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestRedisFacetCache_KeysAreNamespaced(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)

	cache.Put("q=alternator;mode=and", &catalog.DynamicFacets{})

	assert.True(t, mr.Exists("facets:q=alternator;mode=and"))
}

func TestRedisFacetCache_CorruptPayloadIsMiss(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("facets:bad", "{not json"))

	_, ok := cache.Get("bad")
	assert.False(t, ok)
}

func TestRedisFacetCache_ServerDownDegradesToMiss(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)

	cache.Put("k", &catalog.DynamicFacets{TotalFiltered: 1})
	mr.Close()

	_, ok := cache.Get("k")
	assert.False(t, ok, "redis errors must read as misses, not failures")
}

func TestNewRedisFacetCache_UnreachableServer(t *testing.T) {
	_, err := NewRedisFacetCache("127.0.0.1:1", "", 0, time.Minute)
	assert.Error(t, err)
}
