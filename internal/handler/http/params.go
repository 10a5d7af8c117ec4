package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
	"github.com/utafrali/ecommerce-discovery/pkg/httputil"
	"github.com/utafrali/ecommerce-discovery/pkg/validator"
)

// writeFailure renders validator errors with their field map and everything
// else through the standard error envelope.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, logger)
}

// listParam collects a multi-valued parameter given either repeated
// (?a=1&a=2) or comma separated (?a=1,2). Blank entries are ignored.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func decimalParam(q url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.InvalidFilter(fmt.Sprintf("%s must be a decimal number", key))
	}
	return &d, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidFilter(fmt.Sprintf("%s must be a number", key))
	}
	return &f, nil
}

func boolParam(q url.Values, key string) (bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.InvalidFilter(fmt.Sprintf("%s must be true or false", key))
	}
	return b, nil
}

// intParam parses an optional integer. Malformed values are reported through
// invalid so callers choose between pagination and filter errors.
func intParam(q url.Values, key string, invalid func(string) *apperrors.AppError) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid(fmt.Sprintf("%s must be an integer", key))
	}
	return &v, nil
}

func limitParam(q url.Values) (int, error) {
	v, err := intParam(q, "limit", apperrors.InvalidPagination)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}
