// README: Provider search endpoints.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripwise/internal/modules/search"
)

type Searcher interface {
	Search(ctx context.Context, userID string, kind search.Kind, p search.Params) (any, error)
}

type SearchHandler struct {
	search Searcher
}

func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{search: s}
}

// Search returns the handler for GET /api/<kind>/search. Query parameters are passed
// through; user_id, when present, records the results in that user's search history.
func (h *SearchHandler) Search(kind search.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := search.Params{}
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 && k != "user_id" {
				params[k] = v[0]
			}
		}
		userID := c.Query("user_id")
		if userID != "" && !isValidID(userID) {
			writeError(c, http.StatusBadRequest, "invalid user_id")
			return
		}

		result, err := h.search.Search(c.Request.Context(), userID, kind, params)
		if err != nil {
			writeServiceError(c, err, http.StatusBadGateway)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"results": result})
	}
}
