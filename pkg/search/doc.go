// Package search implements the faceted search and relevance-ranking core
// of the partdex catalog.
//
// # Overview
//
// Three public operations are exposed through SearchService:
//
//	Search: ranked, paginated listings with highlighted titles
//	Suggest: typed auto-complete across sku, brand, category, mpn and title
//	Facets: cross-filtered value counts for every filter dimension
//
// Ranking combines an exact-SKU boost, PostgreSQL full-text rank and
// trigram similarity as a near-miss fallback. Facet counts follow
// cross-filter semantics: each dimension is computed under every active
// filter except its own selection, so selecting two brands still shows
// the other brands reachable under the remaining filters.
//
// # Query Syntax
//
// Free text plus comma-separated multi-select dimensions:
//
//	/api/search?q=alternator&brands=Toyota,Honda&minPrice=20&sort=relevance
//
// Short partially-typed queries still match through a prefix token
// expression ("camr" finds "Camry").
//
// # Collaborators
//
// The record store is PostgreSQL with a maintained tsvector column and the
// pg_trgm extension. The core is strictly read-only; keeping the listings
// projection in sync with the authoritative records is the write path's
// job.
//
// Facet responses are served through a bounded TTL cache because the UI
// recomputes facets on every keystroke; see FacetCache.
package search
