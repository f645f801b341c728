// Package catalog defines the read-side types served by the search core:
// the Listing projection, ranked results, facet buckets and suggestions.
//
// The authoritative, mutable listing record lives outside this service.
// Search only ever reads a denormalized projection that the write path
// keeps in sync.
package catalog

import "time"

// Listing is the search-optimized projection of a catalog listing.
// One row per listing; the core never creates or deletes rows.
type Listing struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`

	// Full-text indexed fields
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Features    string `json:"features,omitempty"`

	// Filter dimensions
	Brand        string `json:"brand,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	Condition    string `json:"condition,omitempty"`
	PartType     string `json:"partType,omitempty"`
	Format       string `json:"format,omitempty"`
	Location     string `json:"location,omitempty"`
	SourceFile   string `json:"sourceFile,omitempty"`
	MPN          string `json:"manufacturerPartNumber,omitempty"`
	VehicleMake  string `json:"vehicleMake,omitempty"`
	VehicleModel string `json:"vehicleModel,omitempty"`

	// Price is stored as raw text in the source of record. Locale
	// variants ("139,99") are normalized at query time, not here.
	Price    string `json:"price,omitempty"`
	Quantity int    `json:"quantity"`
	ImageURL string `json:"imageUrl,omitempty"`
	HasImage bool   `json:"hasImage"`

	ImportedAt time.Time `json:"importedAt"`
}

// RankedResult is a Listing plus the ranking signals computed for a
// non-empty query. Score and TitleHighlight are nil for filter-only
// requests.
type RankedResult struct {
	Listing
	RelevanceScore *float64 `json:"relevanceScore"`
	TitleHighlight *string  `json:"titleHighlight"`
}

// FacetBucket is one (value, count) pair within a facet dimension.
// ID carries the stable filter value when it differs from the display
// label (category, vehicle make/model).
type FacetBucket struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PriceRange is the min/max of parseable prices under the active filters.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DynamicFacets holds cross-filtered bucket lists for every dimension,
// plus the price range and total count under all active filters.
type DynamicFacets struct {
	Brands      []FacetBucket `json:"brands"`
	Categories  []FacetBucket `json:"categories"`
	Conditions  []FacetBucket `json:"conditions"`
	PartTypes   []FacetBucket `json:"partTypes"`
	Formats     []FacetBucket `json:"formats"`
	Locations   []FacetBucket `json:"locations"`
	SourceFiles []FacetBucket `json:"sourceFiles"`
	PartNumbers []FacetBucket `json:"partNumbers"`
	Makes       []FacetBucket `json:"makes"`
	Models      []FacetBucket `json:"models"`

	PriceRange    *PriceRange `json:"priceRange"`
	TotalFiltered int         `json:"totalFiltered"`
	QueryTimeMs   int64       `json:"queryTimeMs"`
}

// SuggestionType identifies which source produced a completion.
type SuggestionType string

const (
	SuggestionSKU      SuggestionType = "sku"
	SuggestionBrand    SuggestionType = "brand"
	SuggestionCategory SuggestionType = "category"
	SuggestionMPN      SuggestionType = "mpn"
	SuggestionTitle    SuggestionType = "title"
)

// Suggestion is a single typed auto-complete candidate. Score is the
// merged score (source rank plus type bonus); Count is how many listings
// share the value.
type Suggestion struct {
	Type  SuggestionType `json:"type"`
	Value string         `json:"value"`
	Count int            `json:"count"`
	Score float64        `json:"score"`
}
