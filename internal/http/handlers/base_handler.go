// README: Base handler utilities (JSON helpers, id validation, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tripwise/internal/ai"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/planner"
	"tripwise/internal/modules/search"
	"tripwise/internal/provider/amadeus"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts opaque user ids of up to 64 letters, digits, '-' or '_'.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to a status. Unmapped errors get fallback,
// with the detail logged and hidden from the client.
func writeServiceError(c *gin.Context, err error, fallback int) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, search.ErrInvalidDates), errors.Is(err, search.ErrInvalidParams),
		errors.Is(err, search.ErrUnknownKind):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, amadeus.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "data provider rejected the configured credentials"
	case errors.Is(err, planner.ErrMissingSection):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, aiusage.ErrInsufficientTokens):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, amadeus.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, ai.ErrParse):
		status, msg = http.StatusBadGateway, "language model returned an unreadable response"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "upstream timed out"
	default:
		if fallback == http.StatusBadGateway {
			status, msg = fallback, "upstream provider error"
		}
	}

	ev := zerolog.Ctx(c.Request.Context()).Warn()
	if status >= 500 {
		ev = zerolog.Ctx(c.Request.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	_ = c.Error(err)
	writeError(c, status, msg)
}
