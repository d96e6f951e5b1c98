package dialogue

import (
	"fmt"
	"strings"

	"tripwise/internal/modules/conversation"
)

const (
	replyGreetingFirst = "Hello! I'm your travel planning assistant. I can look up flights, hotels, " +
		"cities to visit and things to do. Where would you like to go?"
	replyGreetingAgain = "Welcome back! What else would you like to add to your trip?"

	replyPlanEmpty = "I don't have enough information for a trip plan yet. Tell me where you're flying " +
		"from and to, where you'd like to stay, or what you'd like to do."

	replyDefault = "I can help you plan a trip. Try something like:\n" +
		"- \"Find a flight from Boston to Rome on 12th April\"\n" +
		"- \"I need a hotel in Paris (PAR)\"\n" +
		"- \"Show me cities in Italy like Florence\"\n" +
		"- \"What activities are there in Rome?\"\n" +
		"When you're ready, ask me to summarise your trip plan."
)

func flightReply(origin, destination string, departure, ret *string, adults int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Got it: a flight from %s to %s", origin, destination)
	if departure != nil {
		fmt.Fprintf(&b, " departing %s", *departure)
	}
	if ret != nil {
		fmt.Fprintf(&b, ", returning %s", *ret)
	}
	if adults > 1 {
		fmt.Fprintf(&b, " for %d travellers", adults)
	}
	fmt.Fprintf(&b, ". Would you like me to find hotels in %s too?", destination)
	return b.String()
}

func hotelCodeMissingReply(location string) string {
	return fmt.Sprintf("Which city code should I use for %s? Please include the 3-letter IATA code "+
		"in brackets, for example \"a hotel in Paris (PAR)\".", location)
}

func hotelReply(location, code string) string {
	return fmt.Sprintf("Noted: a hotel in %s (%s). Are there any activities or attractions "+
		"you'd like to fit in while you're there?", location, code)
}

func countryUnknownReply(country string) string {
	return fmt.Sprintf("I don't recognise %q as a country. Could you give me its 2-letter "+
		"country code, for example FR for France?", country)
}

func cityKeywordMissingReply(country string) string {
	return fmt.Sprintf("What kind of city in %s are you after? Give me a name to search for, "+
		"for example \"cities in %s like ...\".", country, country)
}

func cityReply(country, code, keyword string) string {
	return fmt.Sprintf("I'll look for cities in %s (%s) matching %q.", country, code, keyword)
}

func activityReply(location string) string {
	return fmt.Sprintf("I've noted that you'd like things to do in %s. I'll search for activities "+
		"once your destination and dates are settled.", location)
}

// planSummary renders the sections present in plan, flight first. It returns
// replyPlanEmpty when no known section is present.
func planSummary(plan map[string]any) string {
	var lines []string
	if f, ok := plan[conversation.SectionFlight].(map[string]any); ok {
		line := fmt.Sprintf("- Flight: %s to %s", field(f, "origin"), field(f, "destination"))
		if d := field(f, "departure_date"); d != "" {
			line += ", departing " + d
		}
		if r := field(f, "return_date"); r != "" {
			line += ", returning " + r
		}
		if a := field(f, "adults"); a != "" && a != "1" {
			line += ", " + a + " travellers"
		}
		lines = append(lines, line)
	}
	if h, ok := plan[conversation.SectionHotel].(map[string]any); ok {
		lines = append(lines, fmt.Sprintf("- Hotel: %s (%s)", field(h, "location"), field(h, "city_code")))
	}
	if a, ok := plan[conversation.SectionActivities].(map[string]any); ok {
		lines = append(lines, fmt.Sprintf("- Activities: things to do in %s", field(a, "location")))
	}
	if c, ok := plan[conversation.SectionCitySearch].(map[string]any); ok {
		lines = append(lines, fmt.Sprintf("- City search: %s (%s) matching %q",
			field(c, "country"), field(c, "country_code"), field(c, "keyword")))
	}
	if len(lines) == 0 {
		return replyPlanEmpty
	}
	return "Here's your trip so far:\n" + strings.Join(lines, "\n")
}

func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}
