package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripwise/internal/ai"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *conversation.Store) {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := conversation.NewStore(conversation.WithClock(clock))
	t.Cleanup(store.Close)
	return NewService(store, intent.NewExtractor(intent.WithClock(clock)), opts...), store
}

func TestGreeting_FirstThenAgain(t *testing.T) {
	svc, store := newTestService(t)

	assert.Equal(t, replyGreetingFirst, svc.ProcessMessage("u1", "Hey there!"))
	assert.Len(t, store.ConversationHistory("u1", 0), 2)

	// Two stored messages is still a first-time greeting.
	assert.Equal(t, replyGreetingFirst, svc.ProcessMessage("u1", "hello"))
	// Four stored messages now.
	assert.Equal(t, replyGreetingAgain, svc.ProcessMessage("u1", "hi"))
}

func TestGreeting_ThresholdUsesStoredCount(t *testing.T) {
	svc, store := newTestService(t)
	store.AddMessage("u2", conversation.RoleUser, "one")
	store.AddMessage("u2", conversation.RoleAssistant, "two")
	store.AddMessage("u2", conversation.RoleUser, "three")

	assert.Equal(t, replyGreetingAgain, svc.ProcessMessage("u2", "Good morning"))
}

func TestFlightTurn(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	assert.Equal(t, "Got it: a flight from Boston to Rome. Would you like me to find hotels in Rome too?", reply)

	ctx := store.Get("u1")
	flight, ok := ctx.CurrentPlan[conversation.SectionFlight].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Boston", flight["origin"])
	assert.Equal(t, "Rome", flight["destination"])
	assert.Equal(t, 1, flight["adults"])
	v, present := flight["departure_date"]
	assert.True(t, present, "null dates are stored verbatim")
	assert.Nil(t, v)

	prefs, ok := ctx.Preferences["flight_preferences"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Rome", prefs["destination"])
}

func TestFlightTurn_WithDatesAndTravellers(t *testing.T) {
	svc, _ := newTestService(t)

	reply := svc.ProcessMessage("u1", "fly from Boston to Rome on 12th April returning 20th April for 2 adults")
	assert.Equal(t, "Got it: a flight from Boston to Rome departing 2026-04-12, returning 2026-04-20 for 2 travellers. "+
		"Would you like me to find hotels in Rome too?", reply)
}

func TestFlightTurn_MissingOriginFallsThrough(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "I want a flight to Paris")
	assert.Equal(t, replyDefault, reply)
	assert.Empty(t, store.CurrentPlan("u1"))
}

func TestHotelTurn(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "find accommodation at Lisbon")
	assert.Contains(t, reply, "3-letter IATA code")
	assert.NotContains(t, store.CurrentPlan("u1"), conversation.SectionHotel)

	reply = svc.ProcessMessage("u1", "I need a hotel in Paris (PAR) for 3 nights")
	assert.Contains(t, reply, "Paris (PAR)")
	assert.Equal(t, map[string]any{"location": "Paris", "city_code": "PAR"},
		store.CurrentPlan("u1")[conversation.SectionHotel])
}

func TestCityTurn(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "show me cities in Wakanda like Birnin Zana")
	assert.Contains(t, reply, "2-letter")
	assert.NotContains(t, store.CurrentPlan("u1"), conversation.SectionCitySearch)

	reply = svc.ProcessMessage("u1", "what places are in japan")
	assert.Contains(t, reply, "What kind of city in japan")
	assert.NotContains(t, store.CurrentPlan("u1"), conversation.SectionCitySearch)

	for _, country := range []string{"usa", "America", "the United States"} {
		svc.ProcessMessage("u2", fmt.Sprintf("cities in %s like Austin", country))
		search := store.CurrentPlan("u2")[conversation.SectionCitySearch].(map[string]any)
		assert.Equal(t, "US", search["country_code"], country)
		assert.Equal(t, "Austin", search["keyword"])
	}
}

func TestActivityTurn(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "what activities are there in Rome")
	assert.Equal(t, activityReply("Rome"), reply)
	assert.Equal(t, map[string]any{"location": "Rome"}, store.CurrentPlan("u1")[conversation.SectionActivities])
}

func TestPlanSummary(t *testing.T) {
	svc, store := newTestService(t)

	assert.Equal(t, replyPlanEmpty, svc.ProcessMessage("u1", "show me my trip plan"))

	svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	only := svc.ProcessMessage("u1", "show me my trip plan")
	assert.Equal(t, "Here's your trip so far:\n- Flight: Boston to Rome", only)
	assert.NotContains(t, only, "Hotel")
	assert.NotContains(t, only, "Activities")

	svc.ProcessMessage("u1", "what activities are there in Rome")
	svc.ProcessMessage("u1", "a hotel in Rome (ROM)")
	full := svc.ProcessMessage("u1", "Plan my vacation")
	lines := strings.Split(full, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "- Flight:"))
	assert.Equal(t, "- Hotel: Rome (ROM)", lines[2])
	assert.Equal(t, "- Activities: things to do in Rome", lines[3])

	assert.Len(t, store.ConversationHistory("u1", 100), 10)
}

func TestMergeKeepsOtherSections(t *testing.T) {
	svc, store := newTestService(t)

	svc.ProcessMessage("u1", "a hotel in Rome (ROM)")
	svc.ProcessMessage("u1", "attractions near Rome")
	svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	svc.ProcessMessage("u1", "book a flight from Boston to Milan")

	plan := store.CurrentPlan("u1")
	assert.Equal(t, "Milan", plan[conversation.SectionFlight].(map[string]any)["destination"])
	assert.Contains(t, plan, conversation.SectionHotel)
	assert.Contains(t, plan, conversation.SectionActivities)
}

func TestDefaultReplyAndHistory(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "  what's the weather like?  ")
	assert.Equal(t, replyDefault, reply)

	hist := store.ConversationHistory("u1", 0)
	require.Len(t, hist, 2)
	assert.Equal(t, conversation.RoleUser, hist[0].Role)
	assert.Equal(t, "  what's the weather like?  ", hist[0].Content)
	assert.Equal(t, conversation.RoleAssistant, hist[1].Role)
	assert.Equal(t, replyDefault, hist[1].Content)
}

func TestRuleOrder_GreetingBeatsFlight(t *testing.T) {
	svc, store := newTestService(t)

	reply := svc.ProcessMessage("u1", "hi, book a flight from Boston to Rome")
	assert.Equal(t, replyGreetingFirst, reply)
	assert.Empty(t, store.CurrentPlan("u1"))
}

func TestRuleOrder_GreetingKeywordInsideWord(t *testing.T) {
	svc, store := newTestService(t)

	// "things" contains "hi", so the greeting rule fires before the activity rule.
	reply := svc.ProcessMessage("u1", "things to do in Chicago")
	assert.Equal(t, replyGreetingFirst, reply)
	assert.NotContains(t, store.CurrentPlan("u1"), conversation.SectionActivities)
}

func TestConcurrentUsers(t *testing.T) {
	svc, store := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for j := 0; j < 10; j++ {
				svc.ProcessMessage(user, "book a flight from Boston to Rome")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
	for i := 0; i < 20; i++ {
		assert.Len(t, store.Get(fmt.Sprintf("user-%d", i)).Messages, 20)
	}
}

func TestTurnMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _ := newTestService(t, WithMetrics(metrics.New(reg)))

	svc.ProcessMessage("u1", "hello")
	svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	svc.ProcessMessage("u1", "book a flight from Boston to Milan")

	expected := `
# HELP tripwise_dialogue_turns_total Dialogue turns processed, by matched rule.
# TYPE tripwise_dialogue_turns_total counter
tripwise_dialogue_turns_total{rule="flight"} 2
tripwise_dialogue_turns_total{rule="greeting"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tripwise_dialogue_turns_total"))
}

type stubEnhancer struct {
	gotPlan planner.Plan
	gotUID  string
	err     error
}

func (s *stubEnhancer) EnhancePlan(ctx context.Context, plan planner.Plan) (planner.Plan, error) {
	s.gotPlan = plan
	s.gotUID, _ = aiusage.UIDFrom(ctx)
	if s.err != nil {
		return nil, s.err
	}
	out := planner.Plan{}
	for k, v := range plan {
		out[k] = v
	}
	out["summary"] = "A week in Rome"
	out["itinerary"] = []any{map[string]any{"day": 1.0}}
	out["estimated_total_cost"] = 1200.0
	out["flight"] = "should not overwrite"
	return out, nil
}

func TestEnhanceCurrentPlan(t *testing.T) {
	enh := &stubEnhancer{}
	svc, store := newTestService(t, WithEnhancer(enh))
	ctx := context.Background()

	_, err := svc.EnhanceCurrentPlan(ctx, "u1", planner.RequireAll(conversation.SectionFlight))
	assert.ErrorIs(t, err, planner.ErrMissingSection)
	assert.Nil(t, enh.gotPlan)

	svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	out, err := svc.EnhanceCurrentPlan(ctx, "u1", planner.RequireAny("flight", "budget"))
	require.NoError(t, err)

	assert.Equal(t, "u1", enh.gotUID)
	assert.Equal(t, "A week in Rome", out["summary"])
	assert.Equal(t, 1200.0, out["estimated_total_cost"])
	assert.IsType(t, map[string]any{}, out[conversation.SectionFlight])

	stored := store.CurrentPlan("u1")
	assert.Equal(t, "A week in Rome", stored["summary"])
	assert.IsType(t, map[string]any{}, stored[conversation.SectionFlight])
}

func TestEnhanceCurrentPlan_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnhanceCurrentPlan(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ai.ErrUnavailable)

	enh := &stubEnhancer{err: fmt.Errorf("enhance_plan: %w", ai.ErrParse)}
	svc, store := newTestService(t, WithEnhancer(enh))
	svc.ProcessMessage("u1", "book a flight from Boston to Rome")
	_, err = svc.EnhanceCurrentPlan(context.Background(), "u1", nil)
	assert.True(t, errors.Is(err, ai.ErrParse))
	assert.NotContains(t, store.CurrentPlan("u1"), "summary")
}
