package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tripwise/internal/metrics"
)

type Sweeper interface {
	Sweep() []string
	Len() int
}

type AdminHandler struct {
	store   Sweeper
	metrics *metrics.Collectors
}

func NewAdminHandler(store Sweeper, m *metrics.Collectors) *AdminHandler {
	return &AdminHandler{store: store, metrics: m}
}

// Sweep handles POST /api/admin/sweep: it evicts expired conversations immediately.
func (h *AdminHandler) Sweep(c *gin.Context) {
	removed := h.store.Sweep()
	if removed == nil {
		removed = []string{}
	}
	remaining := h.store.Len()
	h.metrics.ObserveSweep(len(removed), remaining)
	zerolog.Ctx(c.Request.Context()).Info().Int("removed", len(removed)).Int("remaining", remaining).Msg("manual sweep")
	writeJSON(c, http.StatusOK, gin.H{"removed": len(removed), "user_ids": removed, "remaining": remaining})
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
