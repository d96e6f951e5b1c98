// README: Conversational endpoints backed by the dialogue policy and conversation store.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/planner"
)

type Dialogue interface {
	ProcessMessage(userID, message string) string
	EnhanceCurrentPlan(ctx context.Context, userID string, pre planner.Precondition) (map[string]any, error)
}

type Conversations interface {
	ConversationHistory(userID string, limit int) []conversation.Message
	CurrentPlan(userID string) map[string]any
}

type ChatHandler struct {
	dialogue Dialogue
	store    Conversations
	timeout  time.Duration
}

// NewChatHandler wires the chat endpoints. timeout bounds plan enhancement calls.
func NewChatHandler(d Dialogue, store Conversations, timeout time.Duration) *ChatHandler {
	return &ChatHandler{dialogue: d, store: store, timeout: timeout}
}

type chatReq struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, "missing user_id or message")
		return
	}
	if !isValidID(req.UserID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}

	reply := h.dialogue.ProcessMessage(req.UserID, req.Message)
	writeJSON(c, http.StatusOK, gin.H{"reply": reply})
}

// History handles GET /api/chat/:user_id/history.
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": h.store.ConversationHistory(userID, limit)})
}

// Plan handles GET /api/chat/:user_id/plan.
func (h *ChatHandler) Plan(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"current_plan": h.store.CurrentPlan(userID)})
}

// EnhancePlan handles POST /api/chat/:user_id/plan/enhance. A conversation plan needs at
// least one of the sections the dialogue writes.
func (h *ChatHandler) EnhancePlan(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	plan, err := h.dialogue.EnhanceCurrentPlan(ctx, userID, planner.RequireAny(
		conversation.SectionFlight, conversation.SectionHotel, conversation.SectionActivities))
	if err != nil {
		writeServiceError(c, err, http.StatusBadGateway)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"current_plan": plan})
}

func (h *ChatHandler) userID(c *gin.Context) (string, bool) {
	id := c.Param("user_id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return "", false
	}
	return id, true
}
