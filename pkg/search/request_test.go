package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestNormalize_Pagination(t *testing.T) {
	tests := []struct {
		name           string
		req            Request
		expectedLimit  int
		expectedOffset int
	}{
		{
			name:           "defaults",
			req:            Request{},
			expectedLimit:  DefaultLimit,
			expectedOffset: 0,
		},
		{
			name:           "zero limit falls back to default",
			req:            Request{Limit: 0},
			expectedLimit:  DefaultLimit,
			expectedOffset: 0,
		},
		{
			name:           "negative limit falls back to default",
			req:            Request{Limit: -5},
			expectedLimit:  DefaultLimit,
			expectedOffset: 0,
		},
		{
			name:           "oversized limit clamps to max",
			req:            Request{Limit: 500},
			expectedLimit:  MaxLimit,
			expectedOffset: 0,
		},
		{
			name:           "negative offset floors at zero",
			req:            Request{Offset: -10},
			expectedLimit:  DefaultLimit,
			expectedOffset: 0,
		},
		{
			name:           "cursor overrides offset",
			req:            Request{Offset: 5, Cursor: "120"},
			expectedLimit:  DefaultLimit,
			expectedOffset: 120,
		},
		{
			name:           "malformed cursor keeps offset",
			req:            Request{Offset: 5, Cursor: "abc"},
			expectedLimit:  DefaultLimit,
			expectedOffset: 5,
		},
		{
			name:           "negative cursor is ignored",
			req:            Request{Cursor: "-60"},
			expectedLimit:  DefaultLimit,
			expectedOffset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			assert.Equal(t, tt.expectedLimit, tt.req.Limit)
			assert.Equal(t, tt.expectedOffset, tt.req.Offset)
		})
	}
}

func TestRequestNormalize_SortDefaulting(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{
			name:     "query defaults to relevance",
			req:      Request{Query: "alternator"},
			expected: SortRelevance,
		},
		{
			name:     "no query defaults to newest",
			req:      Request{},
			expected: SortNewest,
		},
		{
			name:     "whitespace query counts as empty",
			req:      Request{Query: "   "},
			expected: SortNewest,
		},
		{
			name:     "explicit sort is kept",
			req:      Request{Query: "alternator", Sort: SortPriceAsc},
			expected: SortPriceAsc,
		},
		{
			name:     "unknown sort is replaced",
			req:      Request{Query: "alternator", Sort: "bogus"},
			expected: SortRelevance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			assert.Equal(t, tt.expected, tt.req.Sort)
		})
	}
}

func TestRequestNormalize_FilterMode(t *testing.T) {
	req := Request{FilterMode: "union"}
	req.Normalize()
	assert.Equal(t, FilterModeAnd, req.FilterMode)

	req = Request{FilterMode: FilterModeOr}
	req.Normalize()
	assert.Equal(t, FilterModeOr, req.FilterMode)
}

func TestCacheKey_ValueOrderInsensitive(t *testing.T) {
	a := Request{Query: "Alternator", Brands: "Toyota,Honda", Conditions: "new"}
	b := Request{Query: "alternator", Brands: "Honda, Toyota", Conditions: "new"}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestCacheKey_IgnoresPaginationAndSort(t *testing.T) {
	a := Request{Query: "alternator", Brands: "Toyota", Limit: 60, Offset: 0, Sort: SortRelevance}
	b := Request{Query: "alternator", Brands: "Toyota", Limit: 200, Offset: 120, Sort: SortPriceDesc, Cursor: "120"}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestCacheKey_DistinguishesFilters(t *testing.T) {
	base := Request{Query: "alternator"}
	minPrice := 10.0

	variants := []Request{
		{Query: "alternator", Brands: "Toyota"},
		{Query: "alternator", Makes: "Toyota"},
		{Query: "alternator", MinPrice: &minPrice},
		{Query: "alternator", FilterMode: FilterModeOr},
		{Query: "brake pad"},
	}

	seen := map[string]bool{base.CacheKey(): true}
	for _, v := range variants {
		key := v.CacheKey()
		assert.False(t, seen[key], "duplicate cache key: %s", key)
		seen[key] = true
	}
}

func TestCacheKey_DistinguishesBooleanFlags(t *testing.T) {
	yes, no := true, false
	unset := Request{Query: "x"}
	withImage := Request{Query: "x", HasImage: &yes}
	withoutImage := Request{Query: "x", HasImage: &no}

	assert.NotEqual(t, unset.CacheKey(), withImage.CacheKey())
	assert.NotEqual(t, withImage.CacheKey(), withoutImage.CacheKey())
}

func TestRequestFromValues(t *testing.T) {
	values, err := url.ParseQuery(
		"q=alternator&brands=Toyota,Honda&makes=Toyota&limit=30&offset=60" +
			"&minPrice=9.5&maxPrice=199&hasImage=true&hasPrice=0" +
			"&sort=price_asc&filterMode=or&cursor=90&partNumbers=27060-0H100")
	require.NoError(t, err)

	req := RequestFromValues(values)

	assert.Equal(t, "alternator", req.Query)
	assert.Equal(t, "Toyota,Honda", req.Brands)
	assert.Equal(t, "Toyota", req.Makes)
	assert.Equal(t, "27060-0H100", req.PartNumbers)
	assert.Equal(t, 30, req.Limit)
	assert.Equal(t, 60, req.Offset)
	assert.Equal(t, "90", req.Cursor)
	require.NotNil(t, req.MinPrice)
	assert.Equal(t, 9.5, *req.MinPrice)
	require.NotNil(t, req.MaxPrice)
	assert.Equal(t, 199.0, *req.MaxPrice)
	require.NotNil(t, req.HasImage)
	assert.True(t, *req.HasImage)
	require.NotNil(t, req.HasPrice)
	assert.False(t, *req.HasPrice)
	assert.Equal(t, SortPriceAsc, req.Sort)
	assert.Equal(t, FilterModeOr, req.FilterMode)
}

func TestRequestFromValues_MalformedNumbersIgnored(t *testing.T) {
	values, err := url.ParseQuery("limit=abc&minPrice=cheap&offset=")
	require.NoError(t, err)

	req := RequestFromValues(values)

	assert.Zero(t, req.Limit)
	assert.Nil(t, req.MinPrice)
	assert.Zero(t, req.Offset)
}
