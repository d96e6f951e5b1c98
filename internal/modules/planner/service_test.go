package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripwise/internal/ai"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/provider/amadeus"
)

// stubLLM returns canned replies in order and records the prompts it saw.
type stubLLM struct {
	replies []string
	err     error
	seen    []ai.Request
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(_ context.Context, req ai.Request) (string, error) {
	s.seen = append(s.seen, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("stub: no reply queued")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

const enhancedReply = "```json\n" + `{
  "summary": "Four days of Roman history",
  "estimated_total_cost": 1450,
  "itinerary": [{"day": 1, "title": "Arrival", "activities": []}]
}` + "\n```"

func TestEnhancePlan_AddsKeysWithoutMutatingInput(t *testing.T) {
	llm := &stubLLM{replies: []string{enhancedReply}}
	svc := NewService(llm)

	plan := Plan{
		"flight": map[string]any{"origin": "Boston", "destination": "Rome", "departure_date": nil},
		"hotel":  map[string]any{"location": "Rome", "city_code": "ROM"},
	}
	out, err := svc.EnhancePlan(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, "Four days of Roman history", out["summary"])
	assert.Equal(t, float64(1450), out["estimated_total_cost"])
	assert.Len(t, out["itinerary"], 1)
	assert.Equal(t, plan["flight"], out["flight"])
	assert.Equal(t, plan["hotel"], out["hotel"])
	assert.NotContains(t, plan, "summary")

	require.Len(t, llm.seen, 1)
	prompt := llm.seen[0].Prompt
	assert.Contains(t, prompt, "Boston to Rome")
	assert.Contains(t, prompt, "departing N/A")
	assert.Contains(t, prompt, "general sightseeing")
	assert.Contains(t, prompt, "Budget: 1000 USD")
	assert.True(t, llm.seen[0].JSON)
}

func TestEnhancePlan_DefaultsMissingKeys(t *testing.T) {
	svc := NewService(&stubLLM{replies: []string{`{"summary":"short"}`}})

	out, err := svc.EnhancePlan(context.Background(), Plan{"budget": map[string]any{"total_budget": 500.0, "currency": "EUR"}})
	require.NoError(t, err)
	assert.Equal(t, "short", out["summary"])
	assert.Equal(t, []any{}, out["itinerary"])
	assert.Equal(t, 0, out["estimated_total_cost"])
}

func TestEnhancePlan_MalformedOutput(t *testing.T) {
	svc := NewService(&stubLLM{replies: []string{"```json\n{\"summary\": \"cut off"}})

	out, err := svc.EnhancePlan(context.Background(), Plan{"flight": map[string]any{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrParse))
	assert.Nil(t, out)
}

func TestNullReplyIsParseError(t *testing.T) {
	plan := Plan{"flight": map[string]any{"origin": "Boston", "destination": "Rome"}}

	for _, raw := range []string{"null", "```json\nnull\n```"} {
		svc := NewService(&stubLLM{replies: []string{raw}})
		out, err := svc.EnhancePlan(context.Background(), plan)
		assert.ErrorIs(t, err, ai.ErrParse, raw)
		assert.Nil(t, out)
	}

	svc := NewService(&stubLLM{replies: []string{"null"}})
	intent, err := svc.ExtractIntent(context.Background(), "fly to Rome")
	assert.ErrorIs(t, err, ai.ErrParse)
	assert.Nil(t, intent)
}

func TestEnhancePlan_ProviderError(t *testing.T) {
	svc := NewService(&stubLLM{err: errors.New("connection reset")})

	_, err := svc.EnhancePlan(context.Background(), Plan{"flight": map[string]any{}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ai.ErrParse))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNoProvider(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()
	assert.False(t, svc.Available())

	out, err := svc.ExtractIntent(ctx, "fly me to the moon")
	require.NoError(t, err)
	assert.Equal(t, true, out["fallback"])
	assert.Equal(t, "Please provide structured travel information instead.", out["message"])
	assert.NotEmpty(t, out["error"])

	_, err = svc.EnhancePlan(ctx, Plan{"flight": map[string]any{}})
	assert.ErrorIs(t, err, ai.ErrUnavailable)
	_, err = svc.CompletePlan(ctx, "anything")
	assert.ErrorIs(t, err, ai.ErrUnavailable)
	_, err = svc.GeneratePlanWithData(ctx, PlanData{})
	assert.ErrorIs(t, err, ai.ErrUnavailable)
}

func TestExtractIntent(t *testing.T) {
	llm := &stubLLM{replies: []string{`{"flight":{"origin":"BOS","destination":"FCO","adults":2}}`}}
	svc := NewService(llm)

	out, err := svc.ExtractIntent(context.Background(), "  Boston to Rome for two  ")
	require.NoError(t, err)
	flight, ok := out["flight"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "FCO", flight["destination"])
	assert.Equal(t, ai.TemperatureExtract, llm.seen[0].Temperature)
	assert.True(t, strings.HasSuffix(llm.seen[0].Prompt, "Message: Boston to Rome for two"))
}

func TestCompletePlan(t *testing.T) {
	t.Run("extract then enhance", func(t *testing.T) {
		llm := &stubLLM{replies: []string{
			`{"flight":{"origin":"BOS","destination":"FCO","departure_date":"2026-04-12"}}`,
			enhancedReply,
		}}
		out, err := NewService(llm).CompletePlan(context.Background(), "BOS to FCO on April 12")
		require.NoError(t, err)
		assert.Equal(t, "Four days of Roman history", out["summary"])
		assert.Contains(t, out, "flight")
		assert.Len(t, llm.seen, 2)
	})

	t.Run("no flight section", func(t *testing.T) {
		llm := &stubLLM{replies: []string{`{"hotel":{"city_code":"PAR"}}`}}
		_, err := NewService(llm).CompletePlan(context.Background(), "a hotel in Paris")
		assert.ErrorIs(t, err, ErrMissingSection)
		assert.Len(t, llm.seen, 1)
	})
}

func TestPreconditions(t *testing.T) {
	flightOnly := Plan{"flight": map[string]any{}}
	budgetOnly := Plan{"budget": map[string]any{"total_budget": 800.0}}
	nullFlight := Plan{"flight": nil}

	assert.NoError(t, RequireAll("flight")(flightOnly))
	assert.ErrorIs(t, RequireAll("flight")(budgetOnly), ErrMissingSection)
	assert.ErrorIs(t, RequireAll("flight")(nullFlight), ErrMissingSection)
	assert.ErrorIs(t, RequireAll("flight", "hotel")(flightOnly), ErrMissingSection)

	either := RequireAny("flight", "budget")
	assert.NoError(t, either(flightOnly))
	assert.NoError(t, either(budgetOnly))
	assert.ErrorIs(t, either(Plan{}), ErrMissingSection)
}

func TestGeneratePlanWithData(t *testing.T) {
	flights := make([]amadeus.FlightOffer, 7)
	for i := range flights {
		flights[i] = amadeus.FlightOffer{
			ID: string(rune('A' + i)),
			Itineraries: []amadeus.Itinerary{{Segments: []amadeus.Segment{
				{DepartureAirport: "BOS", ArrivalAirport: "FCO"},
			}}},
			Price: amadeus.PriceDetail{Currency: "USD", GrandTotal: 400 + float64(i)*100},
		}
	}
	data := PlanData{
		Flights:    flights,
		Hotels:     []amadeus.Hotel{{HotelID: "H1", Name: "Hotel Roma", IATACode: "ROM"}},
		Activities: []amadeus.Activity{{ID: "X1", Name: "Forum walk", Price: &amadeus.Amount{Value: 30, Currency: "EUR"}}, {ID: "X2", Name: "Gelato crawl"}},
		Budget: Budget{TotalBudget: 2000, Currency: "USD", Breakdown: BudgetBreakdown{
			Flights: 600, Hotels: 120, Activities: 25, Food: 300,
		}},
	}

	llm := &stubLLM{replies: []string{`{"summary":"Rome on a budget","total_estimated_cost":{"total":"1890","currency":"USD"}}`}}
	out, err := NewService(llm).GeneratePlanWithData(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, "Rome on a budget", out["summary"])
	assert.Equal(t, BudgetTight, out["budget_status"])
	src := out.Section("source_data")
	require.NotNil(t, src)
	assert.Len(t, src["flights"], 7)

	prompt := llm.seen[0].Prompt
	assert.Contains(t, prompt, "1. BOS to FCO - 400 USD ✓ (ID: A)")
	assert.Contains(t, prompt, "3. BOS to FCO - 600 USD ✓ (ID: C)")
	assert.Contains(t, prompt, "4. BOS to FCO - 700 USD ✗ (ID: D)")
	assert.NotContains(t, prompt, "(ID: F)")
	assert.Contains(t, prompt, "Hotel Roma in ROM (ID: H1)")
	assert.Contains(t, prompt, "Forum walk (General) - 30 EUR ✗ (ID: X1)")
	assert.Contains(t, prompt, "Gelato crawl (General) - price varies (ID: X2)")
	assert.Contains(t, prompt, "PREFERENCES\n{}")
}

func TestGeneratePlanWithData_KeepsModelStatus(t *testing.T) {
	llm := &stubLLM{replies: []string{`{"budget_status":"over_budget","total_estimated_cost":{"total":10}}`}}
	out, err := NewService(llm).GeneratePlanWithData(context.Background(), PlanData{Budget: Budget{TotalBudget: 1000}})
	require.NoError(t, err)
	assert.Equal(t, BudgetOver, out["budget_status"])
	assert.Equal(t, []amadeus.Hotel{}, out.Section("source_data")["hotels"])
}

func TestBudgetStatus(t *testing.T) {
	assert.Equal(t, BudgetWithin, budgetStatus(800, 1000))
	assert.Equal(t, BudgetTight, budgetStatus(950, 1000))
	assert.Equal(t, BudgetTight, budgetStatus(1000, 1000))
	assert.Equal(t, BudgetOver, budgetStatus(1000.01, 1000))
	assert.Equal(t, "", budgetStatus(10, 0))
}

func TestQuotaCharged(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }
	quota := aiusage.NewService(aiusage.NewMemoryStore(clock))
	replies := make([]string, aiusage.DefaultTokens+1)
	for i := range replies {
		replies[i] = `{"summary":"ok"}`
	}
	llm := &stubLLM{replies: replies}
	svc := NewService(llm, WithQuota(quota))
	ctx := aiusage.WithUID(context.Background(), "u1")

	for i := 0; i < aiusage.DefaultTokens; i++ {
		_, err := svc.EnhancePlan(ctx, Plan{})
		require.NoError(t, err, "call %d", i)
	}
	_, err := svc.EnhancePlan(ctx, Plan{})
	assert.ErrorIs(t, err, aiusage.ErrInsufficientTokens)
	assert.Len(t, llm.seen, aiusage.DefaultTokens)

	// Calls without a uid are not metered.
	_, err = svc.EnhancePlan(context.Background(), Plan{})
	assert.NoError(t, err)
}
