package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/partdex/partdex/pkg/catalog"
)

// Facets computes cross-filtered bucket counts for every dimension, the
// price range and the total under all active filters. Each dimension is
// counted with every other dimension's selections applied but never its
// own: selecting two brands must not collapse the brand facet to those
// two buckets.
//
// All aggregate queries run concurrently and the response is assembled
// only once every one of them has finished. A single failed aggregate
// fails the whole call; a partial facet payload would render as "0
// brands" in the UI, which is worse than an explicit error.
func (s *SearchService) Facets(ctx context.Context, req Request) (result *catalog.DynamicFacets, err error) {
	ctx, span := tracer.Start(ctx, "Facets")
	defer span.End()

	started := time.Now()
	defer func() { s.observe("facets", err, started) }()

	req.Normalize()
	key := req.CacheKey()

	if cached, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		if s.metrics != nil {
			s.metrics.FacetCacheHitsTotal.Inc()
		}
		hit := *cached
		hit.QueryTimeMs = 0 // signals that no work was performed
		return &hit, nil
	}
	if s.metrics != nil {
		s.metrics.FacetCacheMissesTotal.Inc()
	}
	cq := compile(req, s.cfg.TitleSimilarity, s.cfg.SKUSimilarity)
	facets := &catalog.DynamicFacets{}

	slots := map[string]*[]catalog.FacetBucket{
		"brand":     &facets.Brands,
		"category":  &facets.Categories,
		"condition": &facets.Conditions,
		"type":      &facets.PartTypes,
		"source":    &facets.SourceFiles,
		"format":    &facets.Formats,
		"location":  &facets.Locations,
		"mpn":       &facets.PartNumbers,
		"make":      &facets.Makes,
		"model":     &facets.Models,
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, dim := range dimensions {
		slot := slots[dim.name]
		g.Go(func() error {
			buckets, err := s.facetBuckets(gctx, cq, dim)
			if err != nil {
				return err
			}
			*slot = buckets
			return nil
		})
	}

	g.Go(func() error {
		pr, err := s.priceRange(gctx, cq)
		if err != nil {
			return err
		}
		facets.PriceRange = pr
		return nil
	})

	g.Go(func() error {
		total, err := s.totalFiltered(gctx, cq)
		if err != nil {
			return err
		}
		facets.TotalFiltered = total
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "facet aggregation failed")
		return nil, err
	}

	facets.QueryTimeMs = time.Since(started).Milliseconds()
	s.cache.Put(key, facets)

	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.Int("total_filtered", facets.TotalFiltered),
	)
	span.SetStatus(codes.Ok, "")
	return facets, nil
}

// facetBuckets counts one dimension's values under every other active
// filter. The free-text predicate inside facet computation skips the
// trigram fallback: similarity() cannot use an index, and it would run
// once per dimension per request.
func (s *SearchService) facetBuckets(ctx context.Context, cq *compiledQuery, dim dimension) ([]catalog.FacetBucket, error) {
	a := &argList{}
	where := cq.whereClause(a, dim.name, false)

	var b strings.Builder
	if dim.labelColumn != "" {
		fmt.Fprintf(&b, "SELECT %s AS id, %s AS value, COUNT(*) AS cnt\nFROM listings l\nWHERE %s AND %s IS NOT NULL AND %s <> ''\nGROUP BY %s, %s",
			dim.filterColumn, dim.labelColumn, where,
			dim.filterColumn, dim.filterColumn,
			dim.filterColumn, dim.labelColumn)
	} else {
		fmt.Fprintf(&b, "SELECT %s AS value, COUNT(*) AS cnt\nFROM listings l\nWHERE %s AND %s IS NOT NULL AND %s <> ''\nGROUP BY %s",
			dim.filterColumn, where,
			dim.filterColumn, dim.filterColumn,
			dim.filterColumn)
	}
	fmt.Fprintf(&b, "\nORDER BY cnt DESC, value ASC\nLIMIT %d", dim.bucketCap)

	rows, err := s.pool.Read().QueryContext(ctx, b.String(), a.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s facet: %w", dim.name, err)
	}
	defer rows.Close()

	buckets := make([]catalog.FacetBucket, 0, 16)
	for rows.Next() {
		var bucket catalog.FacetBucket
		if dim.labelColumn != "" {
			err = rows.Scan(&bucket.ID, &bucket.Value, &bucket.Count)
		} else {
			err = rows.Scan(&bucket.Value, &bucket.Count)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s facet bucket: %w", dim.name, err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s facet buckets: %w", dim.name, err)
	}
	return buckets, nil
}

// priceRange computes min/max over parseable prices with all active
// filters applied. No self-exclusion: the range is not a per-dimension
// facet.
func (s *SearchService) priceRange(ctx context.Context, cq *compiledQuery) (*catalog.PriceRange, error) {
	a := &argList{}
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM listings l WHERE %s",
		priceValueExpr, priceValueExpr, cq.whereClause(a, "", false))

	var minPrice, maxPrice *float64
	if err := s.pool.Read().QueryRowContext(ctx, query, a.args...).Scan(&minPrice, &maxPrice); err != nil {
		return nil, fmt.Errorf("failed to compute price range: %w", err)
	}
	if minPrice == nil || maxPrice == nil {
		return nil, nil
	}
	return &catalog.PriceRange{Min: *minPrice, Max: *maxPrice}, nil
}

// totalFiltered counts listings under all active filters.
func (s *SearchService) totalFiltered(ctx context.Context, cq *compiledQuery) (int, error) {
	a := &argList{}
	query := "SELECT COUNT(*) FROM listings l WHERE " + cq.whereClause(a, "", false)

	var total int
	if err := s.pool.Read().QueryRowContext(ctx, query, a.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count filtered listings: %w", err)
	}
	return total, nil
}
