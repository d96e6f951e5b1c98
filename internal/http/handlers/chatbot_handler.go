// README: Stateless LLM plan endpoints (token-guarded enhancement gateway).
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/planner"
)

type Planner interface {
	EnhancePlan(ctx context.Context, plan planner.Plan) (planner.Plan, error)
	ExtractIntent(ctx context.Context, text string) (map[string]any, error)
	GeneratePlanWithData(ctx context.Context, data planner.PlanData) (planner.Plan, error)
	CompletePlan(ctx context.Context, text string) (planner.Plan, error)
}

type ChatbotHandler struct {
	planner Planner
	timeout time.Duration
}

func NewChatbotHandler(p Planner, timeout time.Duration) *ChatbotHandler {
	return &ChatbotHandler{planner: p, timeout: timeout}
}

type planStringReq struct {
	PlanData string `json:"plan_data"`
}

type naturalLanguageReq struct {
	UserInput string `json:"user_input"`
}

type enhanceReq struct {
	Plan planner.Plan `json:"plan"`
}

type tourPlanResp struct {
	Plan      planner.Plan `json:"plan"`
	Summary   any          `json:"summary"`
	Itinerary any          `json:"itinerary"`
}

func newTourPlanResp(p planner.Plan) tourPlanResp {
	resp := tourPlanResp{Plan: p, Summary: "", Itinerary: []any{}}
	if v, ok := p["summary"]; ok && v != nil {
		resp.Summary = v
	}
	if v, ok := p["itinerary"]; ok && v != nil {
		resp.Itinerary = v
	}
	return resp
}

// GeneratePlanFromString handles POST /api/chatbot/generate-plan-from-string. plan_data
// is a JSON document encoded as a string and must carry a flight section.
func (h *ChatbotHandler) GeneratePlanFromString(c *gin.Context) {
	var req planStringReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var plan planner.Plan
	if err := json.Unmarshal([]byte(req.PlanData), &plan); err != nil {
		writeError(c, http.StatusBadRequest, "plan_data must be a JSON object encoded as a string")
		return
	}
	if err := planner.RequireAll("flight")(plan); err != nil {
		writeServiceError(c, err, http.StatusInternalServerError)
		return
	}
	h.enhance(c, plan)
}

// Enhance handles POST /api/chatbot/enhance. The plan needs a flight or a budget section.
func (h *ChatbotHandler) Enhance(c *gin.Context) {
	var req enhanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := planner.RequireAny("flight", "budget")(req.Plan); err != nil {
		writeServiceError(c, err, http.StatusInternalServerError)
		return
	}
	h.enhance(c, req.Plan)
}

func (h *ChatbotHandler) enhance(c *gin.Context, plan planner.Plan) {
	ctx, cancel := h.gatewayContext(c)
	defer cancel()

	enhanced, err := h.planner.EnhancePlan(ctx, plan)
	if err != nil {
		writeServiceError(c, err, http.StatusBadGateway)
		return
	}
	writeJSON(c, http.StatusOK, newTourPlanResp(enhanced))
}

// ProcessNaturalLanguage handles POST /api/chatbot/process-natural-language.
func (h *ChatbotHandler) ProcessNaturalLanguage(c *gin.Context) {
	text, ok := bindUserInput(c)
	if !ok {
		return
	}
	ctx, cancel := h.gatewayContext(c)
	defer cancel()

	out, err := h.planner.ExtractIntent(ctx, text)
	if err != nil {
		writeServiceError(c, err, http.StatusBadGateway)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

// CompleteTravelPlan handles POST /api/chatbot/complete-travel-plan.
func (h *ChatbotHandler) CompleteTravelPlan(c *gin.Context) {
	text, ok := bindUserInput(c)
	if !ok {
		return
	}
	ctx, cancel := h.gatewayContext(c)
	defer cancel()

	plan, err := h.planner.CompletePlan(ctx, text)
	if err != nil {
		writeServiceError(c, err, http.StatusBadGateway)
		return
	}
	writeJSON(c, http.StatusOK, newTourPlanResp(plan))
}

// PlanWithData handles POST /api/chatbot/plan-with-data.
func (h *ChatbotHandler) PlanWithData(c *gin.Context) {
	var data planner.PlanData
	if err := c.ShouldBindJSON(&data); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if data.Budget.TotalBudget < 0 {
		writeError(c, http.StatusBadRequest, "budget.total_budget cannot be negative")
		return
	}
	ctx, cancel := h.gatewayContext(c)
	defer cancel()

	plan, err := h.planner.GeneratePlanWithData(ctx, data)
	if err != nil {
		writeServiceError(c, err, http.StatusBadGateway)
		return
	}
	writeJSON(c, http.StatusOK, plan)
}

// gatewayContext bounds the LLM call and charges it to the caller named in X-User-ID.
func (h *ChatbotHandler) gatewayContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if uid := c.GetHeader("X-User-ID"); isValidID(uid) {
		ctx = aiusage.WithUID(ctx, uid)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func bindUserInput(c *gin.Context) (string, bool) {
	var req naturalLanguageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return "", false
	}
	text := strings.TrimSpace(req.UserInput)
	if text == "" {
		writeError(c, http.StatusBadRequest, "missing user_input")
		return "", false
	}
	return text, true
}
