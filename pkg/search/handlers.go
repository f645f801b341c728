package search

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/partdex/partdex/pkg/httputil"
)

// Handlers provides the HTTP surface for the search façade.
type Handlers struct {
	service *SearchService
}

// NewHandlers creates HTTP handlers over a search service.
func NewHandlers(service *SearchService) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the three public search routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/search", h.search).Methods("GET")
	router.HandleFunc("/api/search/suggest", h.suggest).Methods("GET")
	router.HandleFunc("/api/search/facets", h.facets).Methods("GET")
}

// search handles GET /api/search
func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	req := RequestFromValues(r.URL.Query())
	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}

// suggest handles GET /api/search/suggest
func (h *Handlers) suggest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	resp, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}

// facets handles GET /api/search/facets
func (h *Handlers) facets(w http.ResponseWriter, r *http.Request) {
	req := RequestFromValues(r.URL.Query())
	resp, err := h.service.Facets(r.Context(), req)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}
