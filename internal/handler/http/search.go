package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/service"
	"github.com/utafrali/ecommerce-discovery/pkg/httputil"
	"github.com/utafrali/ecommerce-discovery/pkg/pagination"
	"github.com/utafrali/ecommerce-discovery/pkg/validator"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// facetIDs are the identifier parameters shared by both search endpoints.
type facetIDs struct {
	StoreID     string   `query:"store_id" validate:"omitempty,uuid"`
	CategoryIDs []string `query:"category_ids" validate:"omitempty,dive,uuid"`
}

type autocompleteRequest struct {
	StoreID string `query:"store_id" validate:"omitempty,uuid"`
	Prefix  string `query:"q"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearch(r)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}

	page, err := h.service.Search(r.Context(), p)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, page)
}

// Advanced handles GET /api/v1/search/advanced
func (h *SearchHandler) Advanced(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearch(r)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}

	page, err := h.service.AdvancedSearch(r.Context(), p)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, page)
}

// Autocomplete handles GET /api/v1/search/autocomplete
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := autocompleteRequest{StoreID: q.Get("store_id"), Prefix: q.Get("q")}
	if err := validator.Validate(req); err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	limit, err := limitParam(q)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}

	suggestions, err := h.service.Autocomplete(r.Context(), req.StoreID, req.Prefix, limit)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, suggestions)
}

// Facets handles GET /api/v1/stores/{storeID}/facets
func (h *SearchHandler) Facets(w http.ResponseWriter, r *http.Request) {
	storeID, ok := httputil.ParseUUID(w, chi.URLParam(r, "storeID"))
	if !ok {
		return
	}

	summary, err := h.service.Facets(r.Context(), storeID.String())
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, summary)
}

// parseSearch reads the facet, sort and window parameters shared by the
// text and advanced endpoints. Range checks are left to query.Compile.
func parseSearch(r *http.Request) (query.Params, error) {
	q := r.URL.Query()

	ids := facetIDs{StoreID: q.Get("store_id"), CategoryIDs: listParam(q, "category_ids")}
	if err := validator.Validate(ids); err != nil {
		return query.Params{}, err
	}

	p := query.Params{
		Text:        q.Get("q"),
		StoreID:     ids.StoreID,
		CategoryIDs: ids.CategoryIDs,
	}

	var err error
	if p.MinPrice, err = decimalParam(q, "min_price"); err != nil {
		return query.Params{}, err
	}
	if p.MaxPrice, err = decimalParam(q, "max_price"); err != nil {
		return query.Params{}, err
	}
	if p.MinRating, err = floatParam(q, "min_rating"); err != nil {
		return query.Params{}, err
	}
	if p.MaxRating, err = floatParam(q, "max_rating"); err != nil {
		return query.Params{}, err
	}
	if p.InStockOnly, err = boolParam(q, "in_stock"); err != nil {
		return query.Params{}, err
	}
	if p.Sort, err = query.ParseSort(q.Get("sort")); err != nil {
		return query.Params{}, err
	}
	if p.Page, err = pagination.FromRequest(r); err != nil {
		return query.Params{}, err
	}
	return p, nil
}
