package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// priceValueExpr converts the stored price text to a numeric comparison
// value. Prices arrive from spreadsheet imports in locale variants
// ("139,99"); anything that still fails to parse yields NULL and drops
// out of range comparisons without excluding the row from the result set.
const priceValueExpr = `CASE WHEN l.price ~ '^\s*\d+([.,]\d+)?\s*$' THEN replace(trim(l.price), ',', '.')::numeric END`

// tsvector configuration. "simple" keeps SKUs and part numbers intact
// instead of stemming them away.
const textSearchConfig = "simple"

var nonWordPattern = regexp.MustCompile(`\W+`)

// dimension is one multi-select filter dimension. filterColumn is what the
// selection matches against; labelColumn (when different) supplies the
// display value for facet buckets.
type dimension struct {
	name         string
	filterColumn string
	labelColumn  string
	bucketCap    int
}

// High-cardinality dimensions keep 100 buckets, the long tail 50.
var dimensions = []dimension{
	{name: "brand", filterColumn: "l.brand", bucketCap: 100},
	{name: "category", filterColumn: "l.category_id", labelColumn: "l.category_name", bucketCap: 100},
	{name: "condition", filterColumn: "l.condition", bucketCap: 50},
	{name: "type", filterColumn: "l.part_type", bucketCap: 100},
	{name: "source", filterColumn: "l.source_file", bucketCap: 50},
	{name: "format", filterColumn: "l.format", bucketCap: 50},
	{name: "location", filterColumn: "l.location", bucketCap: 50},
	{name: "mpn", filterColumn: "l.mpn", bucketCap: 50},
	{name: "make", filterColumn: "l.vehicle_make", bucketCap: 100},
	{name: "model", filterColumn: "l.vehicle_model", bucketCap: 100},
}

// SplitFilterValues splits a comma-separated multi-select value per the
// wire convention: trim each element, drop empties, dedupe while keeping
// first-seen order.
func SplitFilterValues(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// BuildPrefixTsQuery turns free text into an AND of prefix-matched tokens
// ("alt toy" -> "alt:* & toy:*") so search-as-you-type queries match
// before a word is fully typed. Returns "" when no usable token remains.
func BuildPrefixTsQuery(query string) string {
	tokens := nonWordPattern.Split(strings.TrimSpace(query), -1)
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		parts = append(parts, tok+":*")
	}
	return strings.Join(parts, " & ")
}

// dimensionFilter is one compiled multi-select selection.
type dimensionFilter struct {
	dim    dimension
	values []string
}

// compiledQuery is the reusable predicate set for one request. The ranker,
// the count query and the facet aggregator all consume the same compiled
// form, which is what guarantees the visible page and the totals agree.
type compiledQuery struct {
	text        string
	prefixQuery string
	filters     []dimensionFilter
	minPrice    *float64
	maxPrice    *float64
	hasImage    *bool
	hasPrice    *bool
	orMode      bool

	titleSimilarity float64
	skuSimilarity   float64
}

// compile translates a normalized Request into predicate descriptors.
// Pure translation, no I/O.
func compile(req Request, titleSim, skuSim float64) *compiledQuery {
	cq := &compiledQuery{
		text:            strings.TrimSpace(req.Query),
		orMode:          req.FilterMode == FilterModeOr,
		minPrice:        req.MinPrice,
		maxPrice:        req.MaxPrice,
		hasImage:        req.HasImage,
		hasPrice:        req.HasPrice,
		titleSimilarity: titleSim,
		skuSimilarity:   skuSim,
	}
	cq.prefixQuery = BuildPrefixTsQuery(cq.text)

	raw := []string{
		req.Brands, req.Categories, req.Conditions, req.Types, req.Sources,
		req.Formats, req.Locations, req.PartNumbers, req.Makes, req.Models,
	}
	for i, dim := range dimensions {
		values := SplitFilterValues(raw[i])
		if len(values) == 0 {
			continue
		}
		cq.filters = append(cq.filters, dimensionFilter{dim: dim, values: values})
	}

	return cq
}

// argList collects query arguments and hands out positional placeholders.
type argList struct {
	args []interface{}
}

func (a *argList) add(v interface{}) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

// textPredicate returns the candidate-inclusion clause for the free-text
// query, or "" for filter-only requests.
//
// The OR chain is deliberate: natural-language match, prefix-token match,
// exact/prefix SKU and, when includeFuzzy is set, trigram similarity
// against title and sku. The fuzzy arm is what keeps near-miss spellings
// from returning zero results; facet computation omits it because
// similarity() cannot use an index and runs once per dimension there.
func (cq *compiledQuery) textPredicate(a *argList, includeFuzzy bool) string {
	if cq.text == "" {
		return ""
	}

	qp := a.add(cq.text)
	clauses := []string{
		fmt.Sprintf("l.search_vector @@ websearch_to_tsquery('%s', %s)", textSearchConfig, qp),
	}
	if cq.prefixQuery != "" {
		pp := a.add(cq.prefixQuery)
		clauses = append(clauses,
			fmt.Sprintf("l.search_vector @@ to_tsquery('%s', %s)", textSearchConfig, pp))
	}
	clauses = append(clauses,
		fmt.Sprintf("lower(l.sku) = lower(%s)", qp),
		fmt.Sprintf("lower(l.sku) LIKE lower(%s) || '%%'", qp),
	)
	if includeFuzzy {
		clauses = append(clauses,
			fmt.Sprintf("similarity(l.title, %s) > %s", qp, a.add(cq.titleSimilarity)),
			fmt.Sprintf("similarity(l.sku, %s) > %s", qp, a.add(cq.skuSimilarity)),
		)
	}

	return "(" + strings.Join(clauses, " OR ") + ")"
}

// rangePredicates returns the price-range and boolean-flag clauses. These
// apply uniformly to search, count and every facet dimension.
func (cq *compiledQuery) rangePredicates(a *argList) []string {
	var clauses []string
	if cq.minPrice != nil {
		clauses = append(clauses, fmt.Sprintf("(%s) >= %s", priceValueExpr, a.add(*cq.minPrice)))
	}
	if cq.maxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("(%s) <= %s", priceValueExpr, a.add(*cq.maxPrice)))
	}
	if cq.hasImage != nil {
		if *cq.hasImage {
			clauses = append(clauses, "l.image_url IS NOT NULL AND l.image_url <> ''")
		} else {
			clauses = append(clauses, "(l.image_url IS NULL OR l.image_url = '')")
		}
	}
	if cq.hasPrice != nil {
		if *cq.hasPrice {
			clauses = append(clauses, fmt.Sprintf("(%s) IS NOT NULL", priceValueExpr))
		} else {
			clauses = append(clauses, fmt.Sprintf("(%s) IS NULL", priceValueExpr))
		}
	}
	return clauses
}

// dimensionPredicate returns the combined multi-select clause, skipping
// the named dimension. Facet cross-filtering passes the dimension being
// counted so its own selection never constrains its own buckets; search
// and count pass "" to apply everything.
func (cq *compiledQuery) dimensionPredicate(a *argList, exclude string) string {
	var clauses []string
	for _, f := range cq.filters {
		if f.dim.name == exclude {
			continue
		}
		clauses = append(clauses,
			fmt.Sprintf("%s = ANY(%s)", f.dim.filterColumn, a.add(pq.Array(f.values))))
	}
	if len(clauses) == 0 {
		return ""
	}
	if cq.orMode && len(clauses) > 1 {
		return "(" + strings.Join(clauses, " OR ") + ")"
	}
	return strings.Join(clauses, " AND ")
}

// whereClause assembles the full predicate set. exclude names a facet
// dimension to leave out; includeFuzzy selects the ranker's fallback
// chain versus the cheaper facet-side text predicate.
func (cq *compiledQuery) whereClause(a *argList, exclude string, includeFuzzy bool) string {
	clauses := make([]string, 0, 4)
	if tp := cq.textPredicate(a, includeFuzzy); tp != "" {
		clauses = append(clauses, tp)
	}
	clauses = append(clauses, cq.rangePredicates(a)...)
	if dp := cq.dimensionPredicate(a, exclude); dp != "" {
		clauses = append(clauses, dp)
	}
	if len(clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(clauses, " AND ")
}
