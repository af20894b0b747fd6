package handlers

import (
	"context"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"pricefeed/internal/service"
	"pricefeed/pkg/httputil"
)

type Handler struct {
	Log         logger.Logger
	FeedService *service.FeedService
}

func NewHandler(log logger.Logger, feedService *service.FeedService) *Handler {
	if feedService == nil {
		panic("feed service cannot be nil")
	}
	return &Handler{Log: log, FeedService: feedService}
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]any{}, nil); err != nil {
		h.Log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Readiness checks external services/clients
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.FeedService.CheckDependency(ctx); err != nil {
		err = httputil.Error(w, r, http.StatusServiceUnavailable, "dependencies_unhealthy", "dependencies check failed", map[string]any{
			"error": err.Error(),
		})
		if err != nil {
			h.Log.Errorf("Readiness handler error: %s", err.Error())
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]any{
		"dependencies": "healthy",
		"last_cycle":   h.FeedService.LastCycle(),
	}, nil); err != nil {
		h.Log.Errorf("Readiness handler error: %s", err.Error())
	}
}
