package planner

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tripwise/internal/provider/amadeus"
)

const (
	maxPromptFlights    = 5
	maxPromptHotels     = 10
	maxPromptActivities = 15

	defaultInterests = "general sightseeing"
)

const extractTemplate = `Read the traveller's message below and pull out whatever trip details it states.
Use this JSON shape, and leave out any top-level section the message does not clearly support:
{
  "flight": {"origin": "IATA code", "destination": "IATA code", "departure_date": "YYYY-MM-DD", "return_date": "YYYY-MM-DD or omit", "adults": 1},
  "hotel": {"city_code": "IATA city code", "check_in_date": "YYYY-MM-DD", "check_out_date": "YYYY-MM-DD", "rooms": 1},
  "activities": {"location": "city name", "interests": ["..."]},
  "budget": {"total_budget": 0, "currency": "USD", "budget_breakdown": {"flights": 0, "hotels": 0, "activities": 0, "food": 0}}
}

Message: %s`

func extractPrompt(text string) string {
	return fmt.Sprintf(extractTemplate, strings.TrimSpace(text))
}

func enhancePrompt(p Plan) string {
	flight := p.Section("flight")
	hotel := p.Section("hotel")
	budget := p.Section("budget")
	if budget == nil {
		budget = map[string]any{"total_budget": 1000, "currency": "USD"}
	}

	var b strings.Builder
	b.WriteString("Plan a day-by-day itinerary for this trip.\n\n")
	fmt.Fprintf(&b, "Flight: %s to %s, departing %s",
		str(flight, "origin", "N/A"), str(flight, "destination", "N/A"), str(flight, "departure_date", "N/A"))
	if ret := str(flight, "return_date", ""); ret != "" {
		fmt.Fprintf(&b, ", returning %s", ret)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Hotel: %s (city code %s), %s to %s\n",
		str(hotel, "location", "N/A"), str(hotel, "city_code", "N/A"),
		str(hotel, "check_in_date", "N/A"), str(hotel, "check_out_date", "N/A"))
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(interests(p.Section("activities")), ", "))
	fmt.Fprintf(&b, "Budget: %s %s\n\n",
		str(budget, "total_budget", "not specified"), str(budget, "currency", "USD"))
	b.WriteString(`For every day give a title, morning, afternoon and evening plans with estimated costs,
meal suggestions with price ranges, and a money-saving tip. Open with a short overall summary.

Answer with this JSON shape:
{
  "summary": "overall trip summary",
  "estimated_total_cost": 0,
  "itinerary": [
    {"day": 1, "date": "YYYY-MM-DD", "title": "...", "description": "...", "estimated_cost": 0,
     "activities": [{"time": "...", "description": "...", "details": "...", "estimated_cost": 0}]}
  ]
}`)
	return b.String()
}

func interests(activities map[string]any) []string {
	var out []string
	switch v := activities["interests"].(type) {
	case []any:
		for _, i := range v {
			if s, ok := i.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	case string:
		if v != "" {
			out = []string{v}
		}
	}
	if len(out) == 0 {
		out = []string{defaultInterests}
	}
	return out
}

func planWithDataPrompt(d PlanData) string {
	cur := d.Budget.Currency
	if cur == "" {
		cur = "USD"
	}
	prefs, _ := json.MarshalIndent(d.Preferences, "", "  ")
	if d.Preferences == nil {
		prefs = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("Build a travel plan from the listings below without exceeding the budget.\n\n")
	b.WriteString("BUDGET\n")
	fmt.Fprintf(&b, "- Total: %s %s\n", money(d.Budget.TotalBudget), cur)
	fmt.Fprintf(&b, "- Flights: %s %s\n", money(d.Budget.Breakdown.Flights), cur)
	fmt.Fprintf(&b, "- Hotels: %s %s\n", money(d.Budget.Breakdown.Hotels), cur)
	fmt.Fprintf(&b, "- Activities: %s %s\n", money(d.Budget.Breakdown.Activities), cur)
	fmt.Fprintf(&b, "- Food: %s %s\n\n", money(d.Budget.Breakdown.Food), cur)
	b.WriteString("FLIGHTS\n" + summarizeFlights(d.Flights, d.Budget.Breakdown.Flights) + "\n\n")
	b.WriteString("HOTELS\n" + summarizeHotels(d.Hotels, d.Budget.Breakdown.Hotels) + "\n\n")
	b.WriteString("ACTIVITIES\n" + summarizeActivities(d.Activities, d.Budget.Breakdown.Activities) + "\n\n")
	b.WriteString("PREFERENCES\n" + string(prefs) + "\n\n")
	b.WriteString(`Pick the best-value options, lay out each day, break down the cost, suggest savings,
and say what changes if the budget moves. Answer with this JSON shape:
{
  "summary": "...",
  "total_estimated_cost": {"flights": 0, "hotels": 0, "activities": 0, "food": 0, "total": 0, "currency": "..."},
  "budget_status": "within_budget | tight_budget | over_budget",
  "recommended_selections": {
    "flight": {"id": "...", "reason": "...", "cost": 0},
    "hotel": {"id": "...", "reason": "...", "cost_per_night": 0},
    "top_activities": [{"id": "...", "name": "...", "cost": 0, "reason": "..."}]
  },
  "itinerary": [
    {"day": 1, "date": "YYYY-MM-DD", "title": "...", "description": "...", "estimated_daily_cost": 0,
     "activities": [{"time": "...", "activity": "...", "description": "...", "cost": 0, "tips": "..."}]}
  ],
  "budget_optimization_tips": ["..."],
  "alternative_options": {"if_budget_increased": "...", "if_budget_decreased": "..."}
}`)
	return b.String()
}

func summarizeFlights(flights []amadeus.FlightOffer, budget float64) string {
	if len(flights) == 0 {
		return "No flights available"
	}
	lines := []string{fmt.Sprintf("Flight budget: %s", money(budget))}
	for i, f := range flights {
		if i == maxPromptFlights {
			break
		}
		price := f.Price.GrandTotal
		if price == 0 {
			price = f.Price.Total
		}
		cur := f.Price.Currency
		if cur == "" {
			cur = "USD"
		}
		lines = append(lines, fmt.Sprintf("  %d. %s - %s %s %s (ID: %s)",
			i+1, f.Route(), money(price), cur, fits(price, budget), orNA(f.ID)))
	}
	return strings.Join(lines, "\n")
}

func summarizeHotels(hotels []amadeus.Hotel, nightly float64) string {
	if len(hotels) == 0 {
		return "No hotels available"
	}
	lines := []string{fmt.Sprintf("Hotel budget per night: %s", money(nightly))}
	for i, h := range hotels {
		if i == maxPromptHotels {
			break
		}
		name := h.Name
		if name == "" {
			name = "Unknown Hotel"
		}
		city := h.CityName
		if city == "" {
			city = h.IATACode
		}
		if city == "" {
			city = "Unknown City"
		}
		lines = append(lines, fmt.Sprintf("  %d. %s in %s (ID: %s) - rates not quoted", i+1, name, city, orNA(h.HotelID)))
	}
	return strings.Join(lines, "\n")
}

func summarizeActivities(acts []amadeus.Activity, budget float64) string {
	if len(acts) == 0 {
		return "No activities available"
	}
	lines := []string{fmt.Sprintf("Activities budget: %s", money(budget))}
	for i, a := range acts {
		if i == maxPromptActivities {
			break
		}
		name := a.Name
		if name == "" {
			name = "Unknown Activity"
		}
		cat := a.Category
		if cat == "" {
			cat = "General"
		}
		price := "price varies"
		mark := ""
		if a.Price != nil {
			price = strings.TrimSpace(money(a.Price.Value) + " " + a.Price.Currency)
			mark = " " + fits(a.Price.Value, budget)
		}
		lines = append(lines, fmt.Sprintf("  %d. %s (%s) - %s%s (ID: %s)", i+1, name, cat, price, mark, orNA(a.ID)))
	}
	return strings.Join(lines, "\n")
}

func fits(price, budget float64) string {
	if price <= budget {
		return "✓"
	}
	return "✗"
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
