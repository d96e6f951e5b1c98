// README: Amadeus Self-Service data types (flights, hotels, cities, activities).
package amadeus

import "errors"

var (
	// ErrUnauthorized is returned when Amadeus rejects the credentials or token (401/403).
	ErrUnauthorized = errors.New("amadeus: unauthorized")
	// ErrNotConfigured is returned when the client has no credentials.
	ErrNotConfigured = errors.New("amadeus: client not configured")
)

// FlightQuery parameters for the flight-offers search.
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Adults        int
	Max           int
}

type FlightOffer struct {
	ID                     string      `json:"id"`
	OneWay                 bool        `json:"one_way"`
	LastTicketingDate      string      `json:"last_ticketing_date,omitempty"`
	NumberOfBookableSeats  int         `json:"number_of_bookable_seats"`
	Itineraries            []Itinerary `json:"itineraries"`
	Price                  PriceDetail `json:"price"`
	ValidatingAirlineCodes []string    `json:"validating_airline_codes"`
}

type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	DepartureAirport  string `json:"departure_airport"`
	DepartureTerminal string `json:"departure_terminal,omitempty"`
	DepartureTime     string `json:"departure_time"`
	ArrivalAirport    string `json:"arrival_airport"`
	ArrivalTerminal   string `json:"arrival_terminal,omitempty"`
	ArrivalTime       string `json:"arrival_time"`
	CarrierCode       string `json:"carrier_code"`
	FlightNumber      string `json:"flight_number"`
	Aircraft          string `json:"aircraft,omitempty"`
	Duration          string `json:"duration,omitempty"`
}

// PriceDetail amounts are summed from the provider's string decimals; Fees and Taxes are totals.
type PriceDetail struct {
	Currency   string  `json:"currency"`
	Total      float64 `json:"total"`
	Base       float64 `json:"base"`
	Fees       float64 `json:"fees"`
	Taxes      float64 `json:"taxes"`
	GrandTotal float64 `json:"grand_total"`
}

// Route returns "ORIG to DEST" for the outbound itinerary.
func (f FlightOffer) Route() string {
	if len(f.Itineraries) == 0 || len(f.Itineraries[0].Segments) == 0 {
		return "N/A"
	}
	segs := f.Itineraries[0].Segments
	return segs[0].DepartureAirport + " to " + segs[len(segs)-1].ArrivalAirport
}

type GeoCode struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Hotel struct {
	HotelID     string  `json:"hotel_id"`
	Name        string  `json:"name"`
	IATACode    string  `json:"iata_code"`
	CityName    string  `json:"city_name,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	GeoCode     GeoCode `json:"geo_code"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
}

type City struct {
	Name        string  `json:"name"`
	IATACode    string  `json:"iata_code,omitempty"`
	CountryCode string  `json:"country_code"`
	StateCode   string  `json:"state_code,omitempty"`
	GeoCode     GeoCode `json:"geo_code"`
}

type Activity struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	Price           *Amount  `json:"price,omitempty"`
	GeoCode         GeoCode  `json:"geo_code"`
	BookingLink     string   `json:"booking_link,omitempty"`
	Pictures        []string `json:"pictures,omitempty"`
	MinimumDuration string   `json:"minimum_duration,omitempty"`
	// DistanceKm is measured from the search centre; filled in by the search layer.
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Amount is a priced value; nil on an Activity means the provider did not quote one.
type Amount struct {
	Value    float64 `json:"amount"`
	Currency string  `json:"currency"`
}
