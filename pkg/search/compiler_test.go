package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFilterValues(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "simple list",
			raw:      "Toyota,Honda",
			expected: []string{"Toyota", "Honda"},
		},
		{
			name:     "trims whitespace",
			raw:      " Toyota , Honda ",
			expected: []string{"Toyota", "Honda"},
		},
		{
			name:     "drops empties",
			raw:      "Toyota,,Honda,",
			expected: []string{"Toyota", "Honda"},
		},
		{
			name:     "dedupes keeping first-seen order",
			raw:      "Honda,Toyota,Honda",
			expected: []string{"Honda", "Toyota"},
		},
		{
			name:     "empty input",
			raw:      "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			raw:      "  ,  ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitFilterValues(tt.raw))
		})
	}
}

func TestBuildPrefixTsQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "single token",
			query:    "camr",
			expected: "camr:*",
		},
		{
			name:     "multiple tokens joined with AND",
			query:    "alt toyota",
			expected: "alt:* & toyota:*",
		},
		{
			name:     "splits on non-word characters",
			query:    "ALT-TOY-245",
			expected: "ALT:* & TOY:* & 245:*",
		},
		{
			name:     "drops empty tokens",
			query:    "  brake -- pad  ",
			expected: "brake:* & pad:*",
		},
		{
			name:     "punctuation only",
			query:    "--!!",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildPrefixTsQuery(tt.query))
		})
	}
}

func TestCompile_FilterDimensions(t *testing.T) {
	req := Request{
		Query:  "alternator",
		Brands: "Toyota, Honda",
		Makes:  "Toyota",
	}
	req.Normalize()

	cq := compile(req, 0.15, 0.30)

	require.Len(t, cq.filters, 2)
	assert.Equal(t, "brand", cq.filters[0].dim.name)
	assert.Equal(t, []string{"Toyota", "Honda"}, cq.filters[0].values)
	assert.Equal(t, "make", cq.filters[1].dim.name)
	assert.Equal(t, "alternator", cq.text)
	assert.Equal(t, "alternator:*", cq.prefixQuery)
}

func TestTextPredicate_FallbackChain(t *testing.T) {
	cq := compile(Request{Query: "camry"}, 0.15, 0.30)

	a := &argList{}
	clause := cq.textPredicate(a, true)

	assert.Contains(t, clause, "websearch_to_tsquery")
	assert.Contains(t, clause, "to_tsquery")
	assert.Contains(t, clause, "lower(l.sku) = lower($1)")
	assert.Contains(t, clause, "similarity(l.title, $1)")
	assert.Contains(t, clause, "similarity(l.sku, $1)")
	// query text, prefix expression, two thresholds
	require.Len(t, a.args, 4)
	assert.Equal(t, "camry", a.args[0])
	assert.Equal(t, "camry:*", a.args[1])
	assert.Equal(t, 0.15, a.args[2])
	assert.Equal(t, 0.30, a.args[3])
}

func TestTextPredicate_FacetPathSkipsFuzzy(t *testing.T) {
	cq := compile(Request{Query: "camry"}, 0.15, 0.30)

	a := &argList{}
	clause := cq.textPredicate(a, false)

	assert.NotContains(t, clause, "similarity(")
	assert.Contains(t, clause, "websearch_to_tsquery")
}

func TestTextPredicate_EmptyQuery(t *testing.T) {
	cq := compile(Request{}, 0.15, 0.30)

	a := &argList{}
	assert.Empty(t, cq.textPredicate(a, true))
	assert.Empty(t, a.args)
}

func TestDimensionPredicate_SelfExclusion(t *testing.T) {
	req := Request{
		Brands:     "Toyota,Honda",
		Conditions: "new",
	}
	req.Normalize()
	cq := compile(req, 0.15, 0.30)

	a := &argList{}
	all := cq.dimensionPredicate(a, "")
	assert.Contains(t, all, "l.brand = ANY(")
	assert.Contains(t, all, "l.condition = ANY(")

	// Excluding the brand dimension must drop only the brand clause.
	b := &argList{}
	excluded := cq.dimensionPredicate(b, "brand")
	assert.NotContains(t, excluded, "l.brand")
	assert.Contains(t, excluded, "l.condition = ANY(")
	require.Len(t, b.args, 1)
}

func TestDimensionPredicate_OrMode(t *testing.T) {
	req := Request{
		Brands:     "Toyota",
		Conditions: "new",
		FilterMode: FilterModeOr,
	}
	req.Normalize()
	cq := compile(req, 0.15, 0.30)

	a := &argList{}
	clause := cq.dimensionPredicate(a, "")
	assert.Contains(t, clause, " OR ")
	assert.True(t, strings.HasPrefix(clause, "("))
}

func TestRangePredicates(t *testing.T) {
	minPrice, maxPrice := 10.0, 99.5
	hasImage := true
	hasPrice := false
	cq := compile(Request{
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		HasImage: &hasImage,
		HasPrice: &hasPrice,
	}, 0.15, 0.30)

	a := &argList{}
	clauses := cq.rangePredicates(a)

	require.Len(t, clauses, 4)
	assert.Contains(t, clauses[0], ">= $1")
	assert.Contains(t, clauses[1], "<= $2")
	assert.Contains(t, clauses[2], "l.image_url IS NOT NULL")
	assert.Contains(t, clauses[3], "IS NULL")
	assert.Equal(t, []interface{}{10.0, 99.5}, a.args)
}

func TestWhereClause_NoPredicates(t *testing.T) {
	cq := compile(Request{}, 0.15, 0.30)

	a := &argList{}
	assert.Equal(t, "TRUE", cq.whereClause(a, "", true))
}

func TestPriceValueExpr_HandlesDecimalComma(t *testing.T) {
	// The SQL expression normalizes "139,99" by replacing the comma; the
	// guard regexp accepts both separators.
	assert.Contains(t, priceValueExpr, `replace(trim(l.price), ',', '.')`)
	assert.Contains(t, priceValueExpr, `[.,]`)
}
