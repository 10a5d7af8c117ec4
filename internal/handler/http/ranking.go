package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ecommerce-discovery/internal/ranking"
	"github.com/utafrali/ecommerce-discovery/internal/service"
	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
	"github.com/utafrali/ecommerce-discovery/pkg/httputil"
)

// RankingHandler serves leaderboards and trending lists.
type RankingHandler struct {
	service *service.RankingService
	logger  *slog.Logger
}

// NewRankingHandler creates a new ranking HTTP handler.
func NewRankingHandler(svc *service.RankingService, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{
		service: svc,
		logger:  logger,
	}
}

// Leaderboard handles GET /api/v1/stores/{storeID}/rankings/{board}
func (h *RankingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	storeID, ok := httputil.ParseUUID(w, chi.URLParam(r, "storeID"))
	if !ok {
		return
	}
	board, err := ranking.ParseBoard(chi.URLParam(r, "board"))
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	req := service.LeaderboardRequest{StoreID: storeID.String(), Board: board}
	if req.Limit, err = limitParam(q); err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	if req.MinReviews, err = intParam(q, "min_reviews", apperrors.InvalidFilter); err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	if req.MinViews, err = intParam(q, "min_views", apperrors.InvalidFilter); err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}

	items, err := h.service.Leaderboard(r.Context(), req)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, items)
}

// Trending handles GET /api/v1/stores/{storeID}/trending
func (h *RankingHandler) Trending(w http.ResponseWriter, r *http.Request) {
	storeID, ok := httputil.ParseUUID(w, chi.URLParam(r, "storeID"))
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := limitParam(q)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	window, err := intParam(q, "window_days", apperrors.InvalidFilter)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	days := 0
	if window != nil {
		days = *window
	}

	items, err := h.service.Trending(r.Context(), storeID.String(), days, limit)
	if err != nil {
		writeFailure(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, items)
}
