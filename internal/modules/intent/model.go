// README: Intent result types produced by the rule-based extractors.
package intent

// FlightIntent is a flight search request parsed from free text.
type FlightIntent struct {
	Origin      string
	Destination string
	// DepartureDate and ReturnDate are YYYY-MM-DD, nil when the message does not carry them.
	DepartureDate *string
	ReturnDate    *string
	Adults        int
}

// Params returns the intent as a plan section. Missing dates are kept as nil values.
func (f FlightIntent) Params() map[string]any {
	return map[string]any{
		"origin":         f.Origin,
		"destination":    f.Destination,
		"departure_date": optional(f.DepartureDate),
		"return_date":    optional(f.ReturnDate),
		"adults":         f.Adults,
	}
}

// HotelIntent is a hotel search request. CityCode is nil unless the user wrote an
// explicit code such as "(PAR)".
type HotelIntent struct {
	Location string
	CityCode *string
}

// CityIntent is a city search within a country, optionally narrowed by a keyword.
type CityIntent struct {
	Country string
	Keyword *string
}

// ActivityIntent is an activity search around a location.
type ActivityIntent struct {
	Location string
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
