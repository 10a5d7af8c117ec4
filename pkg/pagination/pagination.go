package pagination

import (
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds the raw offset/limit pair as supplied by a caller. A nil field
// means "not specified".
type Params struct {
	Offset *int
	Limit  *int
}

// Window is a validated offset/limit pair.
type Window struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Resolve validates p and fills defaults. A missing or zero limit becomes
// defaultLimit and limits above maxLimit are clamped. Negative values are
// rejected with INVALID_PAGINATION.
func (p Params) Resolve(defaultLimit, maxLimit int) (Window, error) {
	w := Window{Limit: defaultLimit}

	if p.Offset != nil {
		if *p.Offset < 0 {
			return Window{}, apperrors.InvalidPagination("offset must not be negative")
		}
		w.Offset = *p.Offset
	}

	if p.Limit != nil {
		if *p.Limit < 0 {
			return Window{}, apperrors.InvalidPagination("limit must not be negative")
		}
		if *p.Limit > 0 {
			w.Limit = *p.Limit
		}
	}

	if maxLimit > 0 && w.Limit > maxLimit {
		w.Limit = maxLimit
	}
	return w, nil
}

// FromRequest extracts offset and limit from the query string. Values that
// are present but not integers are reported as INVALID_PAGINATION.
func FromRequest(r *http.Request) (Params, error) {
	var p Params
	q := r.URL.Query()

	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperrors.InvalidPagination("offset must be an integer")
		}
		p.Offset = &v
	}

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperrors.InvalidPagination("limit must be an integer")
		}
		p.Limit = &v
	}

	return p, nil
}

// Slice returns the part of items covered by w.
func Slice[T any](items []T, w Window) []T {
	if w.Offset >= len(items) {
		return []T{}
	}
	end := w.Offset + w.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[w.Offset:end]
}

// Page wraps one window of an ordered result set.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// NewPage creates a page. HasMore is derived from the window and the total
// number of matches, not from len(items), since enrichment may drop rows.
func NewPage[T any](items []T, total int, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Offset:  w.Offset,
		Limit:   w.Limit,
		HasMore: w.Offset+w.Limit < total,
	}
}
