// README: Dialogue policy: ordered intent rules over the conversation store, one critical section per turn.
package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tripwise/internal/ai"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
)

// firstTurnMessages is the stored-message count below which a greeting is a first greeting.
const firstTurnMessages = 3

// Enhancer turns a plan draft into an itinerary.
type Enhancer interface {
	EnhancePlan(ctx context.Context, plan planner.Plan) (planner.Plan, error)
}

// turn is the state visible to rules while the user's context is locked.
type turn struct {
	text  string
	prior int
	tx    *conversation.Tx
}

type handler func(t *turn) string

// rule pairs a predicate with the handler it selects. try must not mutate state.
type rule struct {
	name string
	try  func(t *turn) (handler, bool)
}

type Service struct {
	store     *conversation.Store
	extractor *intent.Extractor
	enhancer  Enhancer
	rules     []rule
	log       zerolog.Logger
	metrics   *metrics.Collectors
}

type Option func(*Service)

func WithEnhancer(e Enhancer) Option {
	return func(s *Service) { s.enhancer = e }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store *conversation.Store, extractor *intent.Extractor, opts ...Option) *Service {
	if extractor == nil {
		extractor = intent.NewExtractor()
	}
	s := &Service{store: store, extractor: extractor, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.rules = s.buildRules()
	return s
}

// buildRules returns the policy in priority order; the first rule that matches wins
// and the last one always matches.
func (s *Service) buildRules() []rule {
	return []rule{
		{name: "greeting", try: func(t *turn) (handler, bool) {
			return greet, intent.IsGreeting(t.text)
		}},
		{name: "flight", try: func(t *turn) (handler, bool) {
			fi, ok := s.extractor.Flight(t.text)
			return func(t *turn) string { return onFlight(t, fi) }, ok
		}},
		{name: "hotel", try: func(t *turn) (handler, bool) {
			hi, ok := s.extractor.Hotel(t.text)
			return func(t *turn) string { return onHotel(t, hi) }, ok
		}},
		{name: "city", try: func(t *turn) (handler, bool) {
			ci, ok := s.extractor.City(t.text)
			return func(t *turn) string { return onCity(t, ci) }, ok
		}},
		{name: "activity", try: func(t *turn) (handler, bool) {
			act, ok := s.extractor.Activity(t.text)
			return func(t *turn) string { return onActivity(t, act) }, ok
		}},
		{name: "plan_summary", try: func(t *turn) (handler, bool) {
			return summarize, intent.IsPlanRequest(t.text)
		}},
		{name: "default", try: func(*turn) (handler, bool) {
			return func(*turn) string { return replyDefault }, true
		}},
	}
}

// ProcessMessage runs one dialogue turn for userID and returns the reply. The user's
// context stays locked for the whole turn, and both the inbound message and the reply
// are appended to the history. It never fails.
func (s *Service) ProcessMessage(userID, message string) string {
	text := strings.TrimSpace(message)
	var reply, matched string

	s.store.Update(userID, func(tx *conversation.Tx) {
		t := &turn{text: text, prior: tx.MessageCount(), tx: tx}
		for _, r := range s.rules {
			if h, ok := r.try(t); ok {
				matched = r.name
				reply = h(t)
				break
			}
		}
		tx.AddMessage(conversation.RoleUser, message)
		tx.AddMessage(conversation.RoleAssistant, reply)
	})

	s.metrics.ObserveTurn(matched)
	s.log.Debug().Str("user_id", userID).Str("rule", matched).Msg("dialogue turn")
	return reply
}

// EnhanceCurrentPlan sends the user's plan draft to the enhancer and merges the returned
// summary, itinerary and estimated_total_cost into it. pre, when set, is checked first.
// The LLM call is charged to userID.
func (s *Service) EnhanceCurrentPlan(ctx context.Context, userID string, pre planner.Precondition) (map[string]any, error) {
	if s.enhancer == nil {
		return nil, ai.ErrUnavailable
	}
	plan := planner.Plan(s.store.CurrentPlan(userID))
	if pre != nil {
		if err := pre(plan); err != nil {
			return nil, err
		}
	}

	enhanced, err := s.enhancer.EnhancePlan(aiusage.WithUID(ctx, userID), plan)
	if err != nil {
		return nil, fmt.Errorf("enhance plan for %s: %w", userID, err)
	}

	var out map[string]any
	s.store.Update(userID, func(tx *conversation.Tx) {
		tx.UpdateCurrentPlan(map[string]any{
			"summary":              enhanced["summary"],
			"itinerary":            enhanced["itinerary"],
			"estimated_total_cost": enhanced["estimated_total_cost"],
		})
		out = tx.CurrentPlan()
	})
	s.log.Info().Str("user_id", userID).Msg("plan enhanced")
	return out, nil
}

func greet(t *turn) string {
	if t.prior < firstTurnMessages {
		return replyGreetingFirst
	}
	return replyGreetingAgain
}

func onFlight(t *turn, fi intent.FlightIntent) string {
	t.tx.UpdatePreferences(map[string]any{"flight_preferences": fi.Params()})
	t.tx.UpdateCurrentPlan(map[string]any{conversation.SectionFlight: fi.Params()})
	return flightReply(fi.Origin, fi.Destination, fi.DepartureDate, fi.ReturnDate, fi.Adults)
}

func onHotel(t *turn, hi intent.HotelIntent) string {
	if hi.CityCode == nil {
		return hotelCodeMissingReply(hi.Location)
	}
	t.tx.UpdateCurrentPlan(map[string]any{conversation.SectionHotel: map[string]any{
		"location":  hi.Location,
		"city_code": *hi.CityCode,
	}})
	return hotelReply(hi.Location, *hi.CityCode)
}

func onCity(t *turn, ci intent.CityIntent) string {
	code, ok := intent.CountryCode(ci.Country)
	if !ok {
		return countryUnknownReply(ci.Country)
	}
	if ci.Keyword == nil {
		return cityKeywordMissingReply(ci.Country)
	}
	t.tx.UpdateCurrentPlan(map[string]any{conversation.SectionCitySearch: map[string]any{
		"country":      ci.Country,
		"country_code": code,
		"keyword":      *ci.Keyword,
	}})
	return cityReply(ci.Country, code, *ci.Keyword)
}

func onActivity(t *turn, act intent.ActivityIntent) string {
	t.tx.UpdateCurrentPlan(map[string]any{conversation.SectionActivities: map[string]any{
		"location": act.Location,
	}})
	return activityReply(act.Location)
}

func summarize(t *turn) string {
	return planSummary(t.tx.CurrentPlan())
}
