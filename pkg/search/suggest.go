package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/partdex/partdex/pkg/catalog"
)

// Suggestion limits.
const (
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 25
)

// suggestSimilarity is the trigram floor for fuzzy brand/category/mpn
// completions. Looser than the SKU floor: brand names are short and a
// two-character typo already tanks trigram overlap.
const suggestSimilarity = 0.25

// typeBonus is the fixed additive bonus applied per source before the
// final sort. At equal underlying rank an identifier outranks a brand,
// a brand outranks a category, and so on down to free-text title matches.
var typeBonus = map[catalog.SuggestionType]float64{
	catalog.SuggestionSKU:      0.50,
	catalog.SuggestionBrand:    0.40,
	catalog.SuggestionCategory: 0.30,
	catalog.SuggestionMPN:      0.20,
	catalog.SuggestionTitle:    0.10,
}

// SuggestResponse is a merged, ranked auto-complete payload.
type SuggestResponse struct {
	Suggestions []catalog.Suggestion `json:"suggestions"`
	QueryTimeMs int64                `json:"queryTimeMs"`
}

// Suggest returns typed completions for a partial query. Five sources are
// queried concurrently, each capped at ceil(limit/3) distinct values, and
// merged by source score plus type bonus. A whitespace-only query returns
// an empty payload without touching the store.
func (s *SearchService) Suggest(ctx context.Context, query string, limit int) (resp *SuggestResponse, err error) {
	ctx, span := tracer.Start(ctx, "Suggest",
		trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	started := time.Now()
	defer func() { s.observe("suggest", err, started) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return &SuggestResponse{Suggestions: []catalog.Suggestion{}}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}
	perSource := (limit + 2) / 3

	prefixQuery := BuildPrefixTsQuery(query)

	groups := make([][]catalog.Suggestion, 5)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		groups[0], err = s.identifierSuggestions(gctx, query, perSource)
		return err
	})
	g.Go(func() error {
		var err error
		groups[1], err = s.columnSuggestions(gctx, catalog.SuggestionBrand, "l.brand", query, perSource)
		return err
	})
	g.Go(func() error {
		var err error
		groups[2], err = s.columnSuggestions(gctx, catalog.SuggestionCategory, "l.category_name", query, perSource)
		return err
	})
	g.Go(func() error {
		var err error
		groups[3], err = s.columnSuggestions(gctx, catalog.SuggestionMPN, "l.mpn", query, perSource)
		return err
	})
	g.Go(func() error {
		var err error
		groups[4], err = s.titleSuggestions(gctx, prefixQuery, perSource)
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suggestion fan-out failed")
		return nil, err
	}

	merged := mergeSuggestions(limit, groups...)
	span.SetAttributes(attribute.Int("suggestion_count", len(merged)))
	span.SetStatus(codes.Ok, "")

	return &SuggestResponse{
		Suggestions: merged,
		QueryTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// identifierSuggestions ranks SKU completions: exact match, then prefix,
// then trigram similarity above the configured floor.
func (s *SearchService) identifierSuggestions(ctx context.Context, query string, limit int) ([]catalog.Suggestion, error) {
	sql := `SELECT l.sku AS value, COUNT(*) AS cnt,
	MAX(CASE WHEN lower(l.sku) = lower($1) THEN 1.0
		WHEN lower(l.sku) LIKE lower($1) || '%' THEN 0.8
		ELSE similarity(l.sku, $1) END) AS score
FROM listings l
WHERE l.sku <> '' AND (lower(l.sku) = lower($1)
	OR lower(l.sku) LIKE lower($1) || '%'
	OR similarity(l.sku, $1) > $2)
GROUP BY l.sku
ORDER BY score DESC, cnt DESC
LIMIT $3`
	return s.querySuggestions(ctx, catalog.SuggestionSKU, sql, query, s.cfg.SKUSimilarity, limit)
}

// columnSuggestions ranks prefix/fuzzy completions over one text column.
func (s *SearchService) columnSuggestions(ctx context.Context, typ catalog.SuggestionType, column, query string, limit int) ([]catalog.Suggestion, error) {
	sql := fmt.Sprintf(`SELECT %[1]s AS value, COUNT(*) AS cnt,
	MAX(CASE WHEN lower(%[1]s) LIKE lower($1) || '%%' THEN 0.8
		ELSE similarity(%[1]s, $1) END) AS score
FROM listings l
WHERE %[1]s IS NOT NULL AND %[1]s <> '' AND (lower(%[1]s) LIKE lower($1) || '%%'
	OR similarity(%[1]s, $1) > $2)
GROUP BY %[1]s
ORDER BY score DESC, cnt DESC
LIMIT $3`, column)
	return s.querySuggestions(ctx, typ, sql, query, suggestSimilarity, limit)
}

// titleSuggestions ranks full-text title completions through the prefix
// token expression so partially typed words still complete.
func (s *SearchService) titleSuggestions(ctx context.Context, prefixQuery string, limit int) ([]catalog.Suggestion, error) {
	if prefixQuery == "" {
		return nil, nil
	}
	sql := fmt.Sprintf(`SELECT l.title AS value, COUNT(*) AS cnt,
	MAX(ts_rank(l.search_vector, to_tsquery('%[1]s', $1))) AS score
FROM listings l
WHERE l.title <> '' AND l.search_vector @@ to_tsquery('%[1]s', $1)
GROUP BY l.title
ORDER BY score DESC, cnt DESC
LIMIT $2`, textSearchConfig)

	rows, err := s.pool.Read().QueryContext(ctx, sql, prefixQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query title suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows, catalog.SuggestionTitle)
}

func (s *SearchService) querySuggestions(ctx context.Context, typ catalog.SuggestionType, sql, query string, threshold float64, limit int) ([]catalog.Suggestion, error) {
	rows, err := s.pool.Read().QueryContext(ctx, sql, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s suggestions: %w", typ, err)
	}
	defer rows.Close()
	return scanSuggestions(rows, typ)
}

func scanSuggestions(rows sqlRows, typ catalog.SuggestionType) ([]catalog.Suggestion, error) {
	var out []catalog.Suggestion
	for rows.Next() {
		var sug catalog.Suggestion
		if err := rows.Scan(&sug.Value, &sug.Count, &sug.Score); err != nil {
			return nil, fmt.Errorf("failed to scan %s suggestion: %w", typ, err)
		}
		sug.Type = typ
		out = append(out, sug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s suggestions: %w", typ, err)
	}
	return out, nil
}

// sqlRows is the subset of *sql.Rows scanSuggestions needs.
type sqlRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// mergeSuggestions applies the per-type bonus and returns the global
// top-limit by adjusted score. Ties break on count, then value, so the
// merged order is deterministic.
func mergeSuggestions(limit int, groups ...[]catalog.Suggestion) []catalog.Suggestion {
	merged := make([]catalog.Suggestion, 0, limit*2)
	for _, group := range groups {
		for _, sug := range group {
			sug.Score += typeBonus[sug.Type]
			merged = append(merged, sug)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Count != merged[j].Count {
			return merged[i].Count > merged[j].Count
		}
		return merged[i].Value < merged[j].Value
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
