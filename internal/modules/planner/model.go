// README: Plan types, section preconditions and budget helpers for the enhancement gateway.
package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tripwise/internal/provider/amadeus"
)

// ErrMissingSection is returned when a plan lacks a section an operation requires.
var ErrMissingSection = errors.New("plan is missing a required section")

// Plan is a loosely structured travel plan keyed by section ("flight", "hotel",
// "activities", "budget") plus the keys enhancement adds.
type Plan map[string]any

// Has reports whether the section is present and non-null.
func (p Plan) Has(section string) bool {
	v, ok := p[section]
	return ok && v != nil
}

// Section returns the named section as a map, or nil.
func (p Plan) Section(name string) map[string]any {
	m, _ := p[name].(map[string]any)
	return m
}

func (p Plan) clone() Plan {
	out := make(Plan, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Precondition validates a plan before it is sent to the model.
type Precondition func(Plan) error

// RequireAll demands every listed section.
func RequireAll(sections ...string) Precondition {
	return func(p Plan) error {
		for _, s := range sections {
			if !p.Has(s) {
				return fmt.Errorf("%w: %q", ErrMissingSection, s)
			}
		}
		return nil
	}
}

// RequireAny demands at least one of the listed sections.
func RequireAny(sections ...string) Precondition {
	return func(p Plan) error {
		for _, s := range sections {
			if p.Has(s) {
				return nil
			}
		}
		return fmt.Errorf("%w: need one of %s", ErrMissingSection, strings.Join(sections, ", "))
	}
}

// Budget mirrors the "budget" plan section.
type Budget struct {
	TotalBudget float64         `json:"total_budget"`
	Currency    string          `json:"currency"`
	Breakdown   BudgetBreakdown `json:"budget_breakdown"`
}

type BudgetBreakdown struct {
	Flights    float64 `json:"flights"`
	Hotels     float64 `json:"hotels"`
	Activities float64 `json:"activities"`
	Food       float64 `json:"food"`
}

// PlanData is the live provider data a budget-aware plan is generated from.
type PlanData struct {
	Flights     []amadeus.FlightOffer `json:"flights"`
	Hotels      []amadeus.Hotel       `json:"hotels"`
	Activities  []amadeus.Activity    `json:"activities"`
	Budget      Budget                `json:"budget"`
	Preferences map[string]any        `json:"preferences,omitempty"`
}

const (
	BudgetWithin = "within_budget"
	BudgetTight  = "tight_budget"
	BudgetOver   = "over_budget"
)

// budgetStatus classifies total against budget; spending above 90% counts as tight.
func budgetStatus(total, budget float64) string {
	switch {
	case budget <= 0:
		return ""
	case total > budget:
		return BudgetOver
	case total > 0.9*budget:
		return BudgetTight
	default:
		return BudgetWithin
	}
}

// number reads a JSON-decoded numeric value that models sometimes emit as a string.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(n, "$")), 64)
		return f, err == nil
	}
	return 0, false
}

func str(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return def
}
