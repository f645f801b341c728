package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/partdex/partdex/pkg/catalog"
)

// Fixed identifier boosts. Exact SKU dominates everything a full-text
// rank can produce; a SKU prefix still dominates plain text matches.
const (
	skuExactBoost  = 1000.0
	skuPrefixBoost = 500.0
)

// Highlight markup and excerpt bounds for titleHighlight.
const headlineOptions = "StartSel=<mark>, StopSel=</mark>, MaxFragments=1, MaxWords=20, MinWords=4, ShortWord=2"

// SearchResponse is one page of ranked results.
type SearchResponse struct {
	Total       int                    `json:"total"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
	NextCursor  *string                `json:"nextCursor"`
	QueryTimeMs int64                  `json:"queryTimeMs"`
	Items       []catalog.RankedResult `json:"items"`
}

// listingColumns are the projection fields every search query selects.
const listingColumns = `l.id, l.sku, l.title, l.description, l.features,
	l.brand, l.category_id, l.category_name, l.condition, l.part_type,
	l.format, l.location, l.source_file, l.mpn, l.vehicle_make,
	l.vehicle_model, l.price, l.quantity, l.image_url, l.imported_at`

// Search runs the compiled predicates against the listings projection and
// returns one ranked page plus the total over the identical predicate set.
func (s *SearchService) Search(ctx context.Context, req Request) (resp *SearchResponse, err error) {
	ctx, span := tracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", req.Query),
			attribute.Int("limit", req.Limit),
			attribute.Int("offset", req.Offset),
		),
	)
	defer span.End()

	started := time.Now()
	defer func() { s.observe("search", err, started) }()
	req.Normalize()
	cq := compile(req, s.cfg.TitleSimilarity, s.cfg.SKUSimilarity)

	query, args := buildSearchQuery(cq, req)
	rows, err := s.pool.Read().QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search query failed")
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer rows.Close()

	items := make([]catalog.RankedResult, 0, req.Limit)
	total := 0
	for rows.Next() {
		item, rowTotal, err := scanRankedResult(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		total = rowTotal
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error iterating results")
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	// The window-function total rides along on every row. An empty page
	// past the end of the result set carries no rows to read it from, so
	// fall back to a count over the same predicates.
	if len(items) == 0 && req.Offset > 0 {
		total, err = s.countTotal(ctx, cq)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	var nextCursor *string
	if len(items) == req.Limit {
		cursor := strconv.Itoa(req.Offset + req.Limit)
		nextCursor = &cursor
	}

	span.SetAttributes(
		attribute.Int("result_count", len(items)),
		attribute.Int("total", total),
	)
	span.SetStatus(codes.Ok, "")
	if s.metrics != nil {
		s.metrics.SearchResultsPerPage.Observe(float64(len(items)))
	}

	return &SearchResponse{
		Total:       total,
		Limit:       req.Limit,
		Offset:      req.Offset,
		NextCursor:  nextCursor,
		QueryTimeMs: time.Since(started).Milliseconds(),
		Items:       items,
	}, nil
}

// buildSearchQuery assembles the page query: projection columns, ranking
// signals, candidate-inclusion predicates, stable ordering and pagination.
// Totals come from a window function so the page and its count can never
// be computed over different predicates.
func buildSearchQuery(cq *compiledQuery, req Request) (string, []interface{}) {
	a := &argList{}
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(listingColumns)
	b.WriteString(",\n\t")

	if cq.text != "" {
		qp := a.add(cq.text)
		fmt.Fprintf(&b,
			"CASE WHEN lower(l.sku) = lower(%[1]s) THEN %[2]g WHEN lower(l.sku) LIKE lower(%[1]s) || '%%' THEN %[3]g ELSE 0.0 END AS sku_boost,\n\t",
			qp, skuExactBoost, skuPrefixBoost)

		ftRank := fmt.Sprintf("ts_rank(l.search_vector, websearch_to_tsquery('%s', %s))", textSearchConfig, qp)
		if cq.prefixQuery != "" {
			pp := a.add(cq.prefixQuery)
			ftRank = fmt.Sprintf("GREATEST(%s, ts_rank(l.search_vector, to_tsquery('%s', %s)))",
				ftRank, textSearchConfig, pp)
		}
		fmt.Fprintf(&b, "%s AS ft_rank,\n\t", ftRank)
		fmt.Fprintf(&b, "similarity(l.title, %s) AS title_sim,\n\t", qp)
		fmt.Fprintf(&b, "ts_headline('%s', l.title, websearch_to_tsquery('%s', %s), %s) AS title_highlight,\n\t",
			textSearchConfig, textSearchConfig, qp, a.add(headlineOptions))
	} else {
		b.WriteString("NULL::float8 AS sku_boost,\n\t")
		b.WriteString("NULL::float8 AS ft_rank,\n\t")
		b.WriteString("NULL::float8 AS title_sim,\n\t")
		b.WriteString("NULL::text AS title_highlight,\n\t")
	}

	b.WriteString("count(*) OVER () AS total_count\nFROM listings l\nWHERE ")
	b.WriteString(cq.whereClause(a, "", true))
	b.WriteString("\nORDER BY ")
	b.WriteString(orderClause(req.Sort, cq.text != ""))
	fmt.Fprintf(&b, "\nLIMIT %s OFFSET %s", a.add(req.Limit), a.add(req.Offset))

	return b.String(), a.args
}

// orderClause maps a sort mode to its ORDER BY. Every mode ends on
// `l.id ASC`: without the stable tie-break, pages would skip or repeat
// rows whenever many listings share a sort key.
func orderClause(sort string, hasQuery bool) string {
	if sort == SortRelevance && !hasQuery {
		sort = SortNewest
	}
	switch sort {
	case SortRelevance:
		return "sku_boost DESC, ft_rank DESC, title_sim DESC, l.id ASC"
	case SortPriceAsc:
		return "(" + priceValueExpr + ") ASC NULLS LAST, l.id ASC"
	case SortPriceDesc:
		return "(" + priceValueExpr + ") DESC NULLS LAST, l.id ASC"
	case SortTitleAsc:
		return "l.title ASC, l.id ASC"
	case SortTitleDesc:
		return "l.title DESC, l.id ASC"
	case SortSKUAsc:
		return "l.sku ASC, l.id ASC"
	default:
		return "l.imported_at DESC, l.id ASC"
	}
}

// countTotal counts the full filtered set with the same compiled
// predicates as the page query.
func (s *SearchService) countTotal(ctx context.Context, cq *compiledQuery) (int, error) {
	a := &argList{}
	query := "SELECT COUNT(*) FROM listings l WHERE " + cq.whereClause(a, "", true)

	var total int
	if err := s.pool.Read().QueryRowContext(ctx, query, a.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return total, nil
}

// scanRankedResult reads one page row including ranking columns and the
// window total.
func scanRankedResult(rows *sql.Rows) (catalog.RankedResult, int, error) {
	var (
		item        catalog.RankedResult
		description sql.NullString
		features    sql.NullString
		brand       sql.NullString
		categoryID  sql.NullString
		category    sql.NullString
		condition   sql.NullString
		partType    sql.NullString
		format      sql.NullString
		location    sql.NullString
		sourceFile  sql.NullString
		mpn         sql.NullString
		vehMake     sql.NullString
		vehModel    sql.NullString
		price       sql.NullString
		imageURL    sql.NullString
		skuBoost    sql.NullFloat64
		ftRank      sql.NullFloat64
		titleSim    sql.NullFloat64
		highlight   sql.NullString
		total       int
	)

	err := rows.Scan(
		&item.ID, &item.SKU, &item.Title, &description, &features,
		&brand, &categoryID, &category, &condition, &partType,
		&format, &location, &sourceFile, &mpn, &vehMake,
		&vehModel, &price, &item.Quantity, &imageURL, &item.ImportedAt,
		&skuBoost, &ftRank, &titleSim, &highlight, &total,
	)
	if err != nil {
		return item, 0, err
	}

	item.Description = description.String
	item.Features = features.String
	item.Brand = brand.String
	item.CategoryID = categoryID.String
	item.CategoryName = category.String
	item.Condition = condition.String
	item.PartType = partType.String
	item.Format = format.String
	item.Location = location.String
	item.SourceFile = sourceFile.String
	item.MPN = mpn.String
	item.VehicleMake = vehMake.String
	item.VehicleModel = vehModel.String
	item.Price = price.String
	item.ImageURL = imageURL.String
	item.HasImage = imageURL.String != ""

	if skuBoost.Valid && ftRank.Valid {
		score := skuBoost.Float64 + ftRank.Float64
		item.RelevanceScore = &score
	}
	if highlight.Valid && highlight.String != "" {
		h := highlight.String
		item.TitleHighlight = &h
	}

	return item, total, nil
}
