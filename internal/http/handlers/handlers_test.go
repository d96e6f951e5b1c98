// README: Router-level tests for the chat, chatbot, search and admin handlers.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "tripwise/internal/http"
	"tripwise/internal/ai"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/dialogue"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
	"tripwise/internal/modules/search"
	"tripwise/internal/provider/amadeus"
)

type stubPlanner struct {
	err      error
	gotPlan  planner.Plan
	gotUID   string
	extract  map[string]any
	withData planner.PlanData
}

func (s *stubPlanner) EnhancePlan(ctx context.Context, plan planner.Plan) (planner.Plan, error) {
	s.gotPlan = plan
	s.gotUID, _ = aiusage.UIDFrom(ctx)
	if s.err != nil {
		return nil, s.err
	}
	out := planner.Plan{}
	for k, v := range plan {
		out[k] = v
	}
	out["summary"] = "Three days in Rome"
	out["itinerary"] = []any{map[string]any{"day": 1, "activities": []any{"Colosseum"}}}
	out["estimated_total_cost"] = 900
	return out, nil
}

func (s *stubPlanner) ExtractIntent(_ context.Context, _ string) (map[string]any, error) {
	return s.extract, s.err
}

func (s *stubPlanner) GeneratePlanWithData(_ context.Context, data planner.PlanData) (planner.Plan, error) {
	s.withData = data
	if s.err != nil {
		return nil, s.err
	}
	return planner.Plan{"budget_status": planner.BudgetWithin}, nil
}

func (s *stubPlanner) CompletePlan(ctx context.Context, text string) (planner.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.EnhancePlan(ctx, planner.Plan{"flight": map[string]any{"origin": text}})
}

type stubSearcher struct {
	gotUser   string
	gotKind   search.Kind
	gotParams search.Params
	err       error
}

func (s *stubSearcher) Search(_ context.Context, userID string, kind search.Kind, p search.Params) (any, error) {
	s.gotUser, s.gotKind, s.gotParams = userID, kind, p
	if s.err != nil {
		return nil, s.err
	}
	return []amadeus.Hotel{{HotelID: "H1", IATACode: p["city_code"]}}, nil
}

type fixture struct {
	router   *gin.Engine
	store    *conversation.Store
	planner  *stubPlanner
	searcher *stubSearcher
	enhancer *stubPlanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	store := conversation.NewStore(conversation.WithClock(now))
	t.Cleanup(store.Close)

	f := &fixture{store: store, planner: &stubPlanner{}, searcher: &stubSearcher{}, enhancer: &stubPlanner{}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dlg := dialogue.NewService(store, intent.NewExtractor(intent.WithClock(now)),
		dialogue.WithEnhancer(f.enhancer), dialogue.WithMetrics(m))

	f.router = httptransport.NewRouter(httptransport.RouterDeps{
		Dialogue:       dlg,
		Conversations:  store,
		Sweeper:        store,
		Planner:        f.planner,
		Search:         f.searcher,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         zerolog.Nop(),
		GatewayTimeout: time.Second,
	})
	return f
}

func (f *fixture) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestChat_TurnAndReadBack(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/chat", map[string]string{
		"user_id": "alice", "message": "book a flight from Boston to Rome",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["reply"], "Boston to Rome")

	w = f.do(http.MethodGet, "/api/chat/alice/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0].(map[string]any)["role"])

	w = f.do(http.MethodGet, "/api/chat/alice/plan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode(t, w)["current_plan"].(map[string]any)
	assert.Equal(t, "Rome", plan["flight"].(map[string]any)["destination"])

	w = f.do(http.MethodGet, "/metrics", nil)
	assert.Contains(t, w.Body.String(), `tripwise_dialogue_turns_total{rule="flight"} 1`)
}

func TestChat_BadRequests(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/chat", "{").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/chat",
		map[string]string{"user_id": "alice", "message": "   "}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/chat",
		map[string]string{"user_id": "a/b", "message": "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/chat/alice/history?limit=zero", nil).Code)
}

func TestChat_EnhancePlan(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/chat/alice/plan/enhance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	f.do(http.MethodPost, "/api/chat", map[string]string{"user_id": "alice", "message": "a hotel in Rome (ROM)"})
	w = f.do(http.MethodPost, "/api/chat/alice/plan/enhance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	plan := decode(t, w)["current_plan"].(map[string]any)
	assert.Equal(t, "Three days in Rome", plan["summary"])
	assert.Equal(t, "alice", f.enhancer.gotUID)
}

func TestChatbot_GeneratePlanFromString(t *testing.T) {
	f := newFixture(t)
	path := "/api/chatbot/generate-plan-from-string"

	w := f.do(http.MethodPost, path, map[string]string{"plan_data": `{"flight":{"origin":"BOS"}}`}, "X-User-ID", "bob")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Three days in Rome", body["summary"])
	assert.Len(t, body["itinerary"], 1)
	assert.Contains(t, body["plan"], "flight")
	assert.Equal(t, "bob", f.planner.gotUID)

	w = f.do(http.MethodPost, path, map[string]string{"plan_data": "not json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, path, map[string]string{"plan_data": `{"hotel":{"city_code":"ROM"}}`})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChatbot_EnhanceAcceptsBudgetOnly(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/chatbot/enhance", map[string]any{
		"plan": map[string]any{"budget": map[string]any{"total_budget": 800}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, f.planner.gotPlan, "budget")

	w = f.do(http.MethodPost, "/api/chatbot/enhance", map[string]any{"plan": map[string]any{"hotel": map[string]any{}}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChatbot_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("enhance_plan: %w", ai.ErrParse), http.StatusBadGateway},
		{ai.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("charge: %w", aiusage.ErrInsufficientTokens), http.StatusTooManyRequests},
		{fmt.Errorf("%w: need flight", planner.ErrMissingSection), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFixture(t)
			f.planner.err = tt.err
			w := f.do(http.MethodPost, "/api/chatbot/complete-travel-plan", map[string]string{"user_input": "Boston"})
			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestChatbot_ProcessNaturalLanguage(t *testing.T) {
	f := newFixture(t)
	f.planner.extract = map[string]any{"fallback": true}

	w := f.do(http.MethodPost, "/api/chatbot/process-natural-language", map[string]string{"user_input": "Rome in May"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["fallback"])

	w = f.do(http.MethodPost, "/api/chatbot/process-natural-language", map[string]string{"user_input": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatbot_PlanWithData(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/chatbot/plan-with-data", map[string]any{
		"hotels": []map[string]any{{"hotel_id": "H1", "name": "Roma Inn"}},
		"budget": map[string]any{"total_budget": 1500, "currency": "EUR"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, planner.BudgetWithin, decode(t, w)["budget_status"])
	require.Len(t, f.planner.withData.Hotels, 1)
	assert.Equal(t, "Roma Inn", f.planner.withData.Hotels[0].Name)
	assert.Equal(t, 1500.0, f.planner.withData.Budget.TotalBudget)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/hotels/search?city_code=PAR&user_id=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, search.KindHotels, f.searcher.gotKind)
	assert.Equal(t, "alice", f.searcher.gotUser)
	assert.Equal(t, search.Params{"city_code": "PAR"}, f.searcher.gotParams)
	assert.Len(t, decode(t, w)["results"], 1)

	f.searcher.err = fmt.Errorf("%w: departure date cannot be in the past", search.ErrInvalidDates)
	w = f.do(http.MethodGet, "/api/flights/search?origin=BOS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "past")

	f.searcher.err = fmt.Errorf("token: %w", amadeus.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/cities/search?country_code=IT", nil).Code)

	f.searcher.err = amadeus.ErrNotConfigured
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/activities/search?location=Rome", nil).Code)

	f.searcher.err = errors.New("amadeus: status 500")
	w = f.do(http.MethodGet, "/api/hotels/search?city_code=PAR", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, strings.Contains(w.Body.String(), "status 500"))
}

func TestAdminSweep(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/admin/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 0, body["removed"])
	assert.Equal(t, []any{}, body["user_ids"])
}
