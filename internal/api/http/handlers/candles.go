package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pricefeed/internal/domain"
	"pricefeed/internal/universe"
	"pricefeed/pkg/httputil"
)

// PairCandles serves the pair's current candle series.
//
// Query params:
//
//	before        - RFC3339 instant; only rows strictly before it (the
//	                bias-safe view). Without it, the whole series.
//	allow_current - include rows exactly at `before`.
func (h *Handler) PairCandles(w http.ResponseWriter, r *http.Request) {
	pair, err := pairParam(r)
	if err != nil {
		_ = httputil.Error(w, r, http.StatusBadRequest, "bad_pair_id", "pair id must be an integer", nil)
		return
	}

	var candles []domain.Candle
	if rawBefore := r.URL.Query().Get("before"); rawBefore != "" {
		before, perr := time.Parse(time.RFC3339, rawBefore)
		if perr != nil {
			_ = httputil.Error(w, r, http.StatusBadRequest, "bad_timestamp", "before must be RFC3339", nil)
			return
		}
		allowCurrent := r.URL.Query().Get("allow_current") == "true"

		candles, err = h.FeedService.GetPairCandlesBefore(r.Context(), pair, before, allowCurrent)
		if err != nil {
			h.Log.Errorf("PairCandles handler error: %s", err.Error())
			_ = httputil.Error(w, r, http.StatusInternalServerError, "internal", "failed to slice pair series", nil)
			return
		}
	} else {
		candles = h.FeedService.GetPairCandles(r.Context(), pair)
	}

	if candles == nil {
		candles = []domain.Candle{}
	}
	resp := map[string]any{
		"pair_id": pair,
		"columns": domain.CandleColumns,
		"count":   len(candles),
		"candles": candles,
	}
	if err := httputil.JSON(w, http.StatusOK, resp, nil); err != nil {
		h.Log.Errorf("PairCandles handler error: %s", err.Error())
	}
}

// PairPrice resolves the pair's price at an instant with bounded
// staleness: GET /api/pairs/{id}/price?at=<RFC3339>&tolerance=<duration>.
func (h *Handler) PairPrice(w http.ResponseWriter, r *http.Request) {
	pair, err := pairParam(r)
	if err != nil {
		_ = httputil.Error(w, r, http.StatusBadRequest, "bad_pair_id", "pair id must be an integer", nil)
		return
	}

	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		_ = httputil.Error(w, r, http.StatusBadRequest, "bad_timestamp", "at must be RFC3339", nil)
		return
	}

	tolerance := time.Minute
	if rawTol := r.URL.Query().Get("tolerance"); rawTol != "" {
		if tolerance, err = time.ParseDuration(rawTol); err != nil {
			_ = httputil.Error(w, r, http.StatusBadRequest, "bad_tolerance", "tolerance must be a duration", nil)
			return
		}
	}

	price, distance, err := h.FeedService.GetPriceAt(r.Context(), pair, at, tolerance)
	if err != nil {
		var unavailable *universe.CandleSampleUnavailableError
		switch {
		case errors.As(err, &unavailable):
			_ = httputil.Error(w, r, http.StatusNotFound, "sample_unavailable", unavailable.Error(), map[string]any{
				"pair_id":   unavailable.PairID,
				"when":      unavailable.When,
				"tolerance": unavailable.Tolerance.String(),
			})
		case errors.Is(err, universe.ErrPairNotFound):
			_ = httputil.Error(w, r, http.StatusNotFound, "pair_not_found", err.Error(), nil)
		default:
			h.Log.Errorf("PairPrice handler error: %s", err.Error())
			_ = httputil.Error(w, r, http.StatusInternalServerError, "internal", "price lookup failed", nil)
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]any{
		"pair_id":  pair,
		"at":       at,
		"price":    price,
		"distance": distance.String(),
	}, nil); err != nil {
		h.Log.Errorf("PairPrice handler error: %s", err.Error())
	}
}

func pairParam(r *http.Request) (domain.PairID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.PairID(id), nil
}
