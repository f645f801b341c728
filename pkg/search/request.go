package search

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Pagination bounds. Limit is hard-capped to bound per-request work; there
// is no admission-control layer below this.
const (
	DefaultLimit = 60
	MaxLimit     = 200
)

// Sort modes accepted by Search.
const (
	SortRelevance = "relevance"
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortTitleAsc  = "title_asc"
	SortTitleDesc = "title_desc"
	SortSKUAsc    = "sku_asc"
)

// Filter modes. In "or" mode the dimension predicates are unioned instead
// of intersected.
const (
	FilterModeAnd = "and"
	FilterModeOr  = "or"
)

// Request is one inbound search/facets request. Multi-select dimensions
// arrive as comma-separated strings per the wire convention; the compiler
// splits, trims and dedupes them.
type Request struct {
	Query  string
	Limit  int
	Offset int
	Cursor string

	Brands      string
	Categories  string
	Conditions  string
	Types       string
	Sources     string
	Formats     string
	Locations   string
	PartNumbers string
	Makes       string
	Models      string

	MinPrice *float64
	MaxPrice *float64
	HasImage *bool
	HasPrice *bool

	Sort       string
	FilterMode string
}

// Normalize clamps pagination, resolves the cursor and defaults the sort
// and filter mode. Malformed input is corrected, never rejected: these are
// read-only idempotent operations and best-effort beats a 400.
func (r *Request) Normalize() {
	if r.Cursor != "" {
		if off, err := strconv.Atoi(r.Cursor); err == nil && off > 0 {
			r.Offset = off
		}
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}

	switch r.Sort {
	case SortRelevance, SortNewest, SortPriceAsc, SortPriceDesc, SortTitleAsc, SortTitleDesc, SortSKUAsc:
	default:
		if strings.TrimSpace(r.Query) == "" {
			r.Sort = SortNewest
		} else {
			r.Sort = SortRelevance
		}
	}

	if r.FilterMode != FilterModeOr {
		r.FilterMode = FilterModeAnd
	}
}

// HasQuery reports whether the request carries a ranking signal.
func (r *Request) HasQuery() bool {
	return strings.TrimSpace(r.Query) != ""
}

// CacheKey returns a canonical serialization of everything facet
// computation depends on. Pagination, sort and cursor are deliberately
// excluded: facets are identical across pages of the same filter set.
func (r *Request) CacheKey() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(r.Query)))

	dims := []struct {
		name string
		raw  string
	}{
		{"brand", r.Brands},
		{"category", r.Categories},
		{"condition", r.Conditions},
		{"type", r.Types},
		{"source", r.Sources},
		{"format", r.Formats},
		{"location", r.Locations},
		{"mpn", r.PartNumbers},
		{"make", r.Makes},
		{"model", r.Models},
	}
	for _, d := range dims {
		values := SplitFilterValues(d.raw)
		if len(values) == 0 {
			continue
		}
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		b.WriteString(";")
		b.WriteString(d.name)
		b.WriteString("=")
		b.WriteString(strings.Join(sorted, ","))
	}

	if r.MinPrice != nil {
		fmt.Fprintf(&b, ";minPrice=%g", *r.MinPrice)
	}
	if r.MaxPrice != nil {
		fmt.Fprintf(&b, ";maxPrice=%g", *r.MaxPrice)
	}
	if r.HasImage != nil {
		fmt.Fprintf(&b, ";hasImage=%t", *r.HasImage)
	}
	if r.HasPrice != nil {
		fmt.Fprintf(&b, ";hasPrice=%t", *r.HasPrice)
	}
	b.WriteString(";mode=")
	if r.FilterMode == FilterModeOr {
		b.WriteString(FilterModeOr)
	} else {
		b.WriteString(FilterModeAnd)
	}

	return b.String()
}

// RequestFromValues builds a Request from URL query parameters.
func RequestFromValues(values url.Values) Request {
	req := Request{
		Query:       values.Get("q"),
		Cursor:      values.Get("cursor"),
		Brands:      values.Get("brands"),
		Categories:  values.Get("categories"),
		Conditions:  values.Get("conditions"),
		Types:       values.Get("types"),
		Sources:     values.Get("sources"),
		Formats:     values.Get("formats"),
		Locations:   values.Get("locations"),
		PartNumbers: values.Get("partNumbers"),
		Makes:       values.Get("makes"),
		Models:      values.Get("models"),
		Sort:        values.Get("sort"),
		FilterMode:  values.Get("filterMode"),
	}

	if s := values.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			req.Limit = n
		}
	}
	if s := values.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			req.Offset = n
		}
	}
	if s := values.Get("minPrice"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			req.MinPrice = &f
		}
	}
	if s := values.Get("maxPrice"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			req.MaxPrice = &f
		}
	}
	if s := values.Get("hasImage"); s != "" {
		v := s == "true" || s == "1"
		req.HasImage = &v
	}
	if s := values.Get("hasPrice"); s != "" {
		v := s == "true" || s == "1"
		req.HasPrice = &v
	}

	return req
}
