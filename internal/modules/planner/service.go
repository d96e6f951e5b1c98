// README: External enhancement gateway: LLM-backed intent extraction and itinerary generation.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tripwise/internal/ai"
	"tripwise/internal/metrics"
)

// Quota charges LLM calls to the user carried by the context.
type Quota interface {
	Charge(ctx context.Context) error
}

// Service wraps an LLM provider with the travel prompts. A nil provider is allowed:
// ExtractIntent then returns its fallback object and the other calls ai.ErrUnavailable.
type Service struct {
	llm     ai.LLMProvider
	quota   Quota
	log     zerolog.Logger
	metrics *metrics.Collectors
}

type Option func(*Service)

func WithQuota(q Quota) Option {
	return func(s *Service) { s.quota = q }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(llm ai.LLMProvider, opts ...Option) *Service {
	s := &Service{llm: llm, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether an LLM provider is configured.
func (s *Service) Available() bool { return s.llm != nil }

func (s *Service) complete(ctx context.Context, op string, req ai.Request) (raw string, err error) {
	defer func() { s.metrics.ObserveGateway(op, err) }()

	if s.llm == nil {
		return "", ai.ErrUnavailable
	}
	if s.quota != nil {
		if err := s.quota.Charge(ctx); err != nil {
			return "", err
		}
	}

	start := time.Now()
	raw, err = s.llm.Complete(ctx, req)
	var ev *zerolog.Event
	if err != nil {
		ev = s.log.Warn().Err(err)
	} else {
		ev = s.log.Debug()
	}
	ev.Str("op", op).Str("provider", s.llm.Name()).Dur("latency", time.Since(start)).Msg("llm call")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return raw, nil
}

// EnhancePlan asks the model for a summary, itinerary and cost estimate for plan and
// returns a copy of plan with those three keys added. plan itself is not modified.
func (s *Service) EnhancePlan(ctx context.Context, plan Plan) (Plan, error) {
	raw, err := s.complete(ctx, "enhance_plan", ai.Request{
		System:      ai.SystemEnhance,
		Prompt:      enhancePrompt(plan),
		Temperature: ai.TemperatureCreative,
		MaxTokens:   ai.MaxTokensEnhance,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := ai.DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("enhance_plan: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("enhance_plan: %w: null plan", ai.ErrParse)
	}

	enhanced := plan.clone()
	enhanced["summary"] = valueOr(out, "summary", "")
	enhanced["itinerary"] = valueOr(out, "itinerary", []any{})
	enhanced["estimated_total_cost"] = valueOr(out, "estimated_total_cost", 0)
	return enhanced, nil
}

// ExtractIntent asks the model for structured trip sections in free text.
// Without a provider it returns a fallback object with "fallback": true and a nil error.
func (s *Service) ExtractIntent(ctx context.Context, text string) (map[string]any, error) {
	if s.llm == nil {
		return map[string]any{
			"error":    "Natural language processing is not available: no LLM provider is configured.",
			"fallback": true,
			"message":  "Please provide structured travel information instead.",
		}, nil
	}

	raw, err := s.complete(ctx, "extract_intent", ai.Request{
		System:      ai.SystemExtract,
		Prompt:      extractPrompt(text),
		Temperature: ai.TemperatureExtract,
		MaxTokens:   ai.MaxTokensExtract,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := ai.DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("extract_intent: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("extract_intent: %w: null result", ai.ErrParse)
	}
	return out, nil
}

// GeneratePlanWithData builds a budget-aware plan from live provider listings. The result
// carries the listings under "source_data"; budget_status is derived from the estimated
// total when the model leaves it out.
func (s *Service) GeneratePlanWithData(ctx context.Context, data PlanData) (Plan, error) {
	raw, err := s.complete(ctx, "plan_with_data", ai.Request{
		System:      ai.SystemPlanWithData,
		Prompt:      planWithDataPrompt(data),
		Temperature: ai.TemperatureCreative,
		MaxTokens:   ai.MaxTokensPlanWithData,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var out Plan
	if err := ai.DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("plan_with_data: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("plan_with_data: %w: null plan", ai.ErrParse)
	}

	switch out["budget_status"] {
	case BudgetWithin, BudgetTight, BudgetOver:
	default:
		if total, ok := number(out.Section("total_estimated_cost")["total"]); ok {
			if status := budgetStatus(total, data.Budget.TotalBudget); status != "" {
				out["budget_status"] = status
			}
		}
	}

	out["source_data"] = map[string]any{
		"flights":    nonNil(data.Flights),
		"hotels":     nonNil(data.Hotels),
		"activities": nonNil(data.Activities),
	}
	return out, nil
}

// CompletePlan extracts a plan from text and enhances it. The extracted plan must
// contain a flight section.
func (s *Service) CompletePlan(ctx context.Context, text string) (Plan, error) {
	if s.llm == nil {
		return nil, ai.ErrUnavailable
	}
	extracted, err := s.ExtractIntent(ctx, text)
	if err != nil {
		return nil, err
	}
	plan := Plan(extracted)
	if err := RequireAll("flight")(plan); err != nil {
		return nil, err
	}
	return s.EnhancePlan(ctx, plan)
}

func valueOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
