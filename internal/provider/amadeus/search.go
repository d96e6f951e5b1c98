package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type rawFlightOffers struct {
	Data []struct {
		ID                    string `json:"id"`
		LastTicketingDate     string `json:"lastTicketingDate"`
		NumberOfBookableSeats int    `json:"numberOfBookableSeats"`
		Itineraries           []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure rawEndpoint `json:"departure"`
				Arrival   rawEndpoint `json:"arrival"`
				Carrier   string      `json:"carrierCode"`
				Number    string      `json:"number"`
				Aircraft  struct {
					Code string `json:"code"`
				} `json:"aircraft"`
				Duration string `json:"duration"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Currency   string      `json:"currency"`
			Total      decimal     `json:"total"`
			Base       decimal     `json:"base"`
			GrandTotal *decimal    `json:"grandTotal"`
			Fees       []rawCharge `json:"fees"`
			Taxes      []rawCharge `json:"taxes"`
		} `json:"price"`
		ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
	} `json:"data"`
}

type rawEndpoint struct {
	IATACode string `json:"iataCode"`
	Terminal string `json:"terminal"`
	At       string `json:"at"`
}

type rawCharge struct {
	Amount decimal `json:"amount"`
}

// SearchFlights queries /v2/shopping/flight-offers.
func (c *Client) SearchFlights(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	if q.Adults < 1 {
		q.Adults = 1
	}
	if q.Max < 1 {
		q.Max = 10
	}
	params := map[string]string{
		"originLocationCode":      strings.ToUpper(q.Origin),
		"destinationLocationCode": strings.ToUpper(q.Destination),
		"departureDate":           q.DepartureDate,
		"adults":                  strconv.Itoa(q.Adults),
		"max":                     strconv.Itoa(q.Max),
	}
	if q.ReturnDate != "" {
		params["returnDate"] = q.ReturnDate
	}

	body, err := c.get(ctx, "/v2/shopping/flight-offers", params)
	if err != nil {
		return nil, err
	}
	return parseFlightOffers(body)
}

func parseFlightOffers(body []byte) ([]FlightOffer, error) {
	var raw rawFlightOffers
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("amadeus: decode flight offers: %w", err)
	}

	offers := make([]FlightOffer, 0, len(raw.Data))
	for _, o := range raw.Data {
		its := make([]Itinerary, 0, len(o.Itineraries))
		for _, it := range o.Itineraries {
			segs := make([]Segment, 0, len(it.Segments))
			for _, s := range it.Segments {
				segs = append(segs, Segment{
					DepartureAirport:  s.Departure.IATACode,
					DepartureTerminal: s.Departure.Terminal,
					DepartureTime:     s.Departure.At,
					ArrivalAirport:    s.Arrival.IATACode,
					ArrivalTerminal:   s.Arrival.Terminal,
					ArrivalTime:       s.Arrival.At,
					CarrierCode:       s.Carrier,
					FlightNumber:      s.Number,
					Aircraft:          s.Aircraft.Code,
					Duration:          s.Duration,
				})
			}
			its = append(its, Itinerary{Duration: it.Duration, Segments: segs})
		}

		price := PriceDetail{
			Currency: o.Price.Currency,
			Total:    float64(o.Price.Total),
			Base:     float64(o.Price.Base),
		}
		if price.Currency == "" {
			price.Currency = "EUR"
		}
		for _, f := range o.Price.Fees {
			price.Fees += float64(f.Amount)
		}
		for _, t := range o.Price.Taxes {
			price.Taxes += float64(t.Amount)
		}
		price.GrandTotal = price.Total
		if o.Price.GrandTotal != nil {
			price.GrandTotal = float64(*o.Price.GrandTotal)
		}

		seats := o.NumberOfBookableSeats
		if seats == 0 {
			seats = 1
		}
		var airlines []string
		if len(o.ValidatingAirlineCodes) > 0 {
			airlines = []string{o.ValidatingAirlineCodes[0]}
		}

		offers = append(offers, FlightOffer{
			ID:                     o.ID,
			OneWay:                 len(o.Itineraries) == 1,
			LastTicketingDate:      o.LastTicketingDate,
			NumberOfBookableSeats:  seats,
			Itineraries:            its,
			Price:                  price,
			ValidatingAirlineCodes: airlines,
		})
	}
	return offers, nil
}

type rawGeo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rawHotels struct {
	Data []struct {
		HotelID  string `json:"hotelId"`
		Name     string `json:"name"`
		IATACode string `json:"iataCode"`
		Address  struct {
			CityName    string `json:"cityName"`
			CountryCode string `json:"countryCode"`
		} `json:"address"`
		GeoCode  rawGeo `json:"geoCode"`
		Distance struct {
			Value decimal `json:"value"`
			Unit  string  `json:"unit"`
		} `json:"distance"`
	} `json:"data"`
}

// SearchHotels lists hotels in an IATA city code. "No hotels" answers yield an empty slice.
func (c *Client) SearchHotels(ctx context.Context, cityCode string) ([]Hotel, error) {
	cityCode = strings.ToUpper(strings.TrimSpace(cityCode))
	key := "hotels:" + cityCode
	var hotels []Hotel
	if c.cached(ctx, key, &hotels) {
		return hotels, nil
	}

	body, err := c.get(ctx, "/v1/reference-data/locations/hotels/by-city", map[string]string{
		"cityCode": cityCode,
	})
	if errors.Is(err, errNotFound) {
		return []Hotel{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw rawHotels
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("amadeus: decode hotels: %w", err)
	}
	hotels = make([]Hotel, 0, len(raw.Data))
	for _, h := range raw.Data {
		dist := float64(h.Distance.Value)
		if strings.EqualFold(h.Distance.Unit, "MI") {
			dist *= 1.609344
		}
		hotels = append(hotels, Hotel{
			HotelID:     h.HotelID,
			Name:        h.Name,
			IATACode:    h.IATACode,
			CityName:    h.Address.CityName,
			CountryCode: h.Address.CountryCode,
			GeoCode:     GeoCode(h.GeoCode),
			DistanceKm:  dist,
		})
	}
	c.store(ctx, key, hotels)
	return hotels, nil
}

type rawCities struct {
	Data []struct {
		Name     string `json:"name"`
		IATACode string `json:"iataCode"`
		Address  struct {
			CountryCode string `json:"countryCode"`
			StateCode   string `json:"stateCode"`
		} `json:"address"`
		GeoCode rawGeo `json:"geoCode"`
	} `json:"data"`
}

// SearchCities looks up cities in a country, optionally filtered by name keyword.
func (c *Client) SearchCities(ctx context.Context, countryCode, keyword string) ([]City, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	keyword = strings.TrimSpace(keyword)
	key := "cities:" + countryCode + ":" + strings.ToLower(keyword)
	var cities []City
	if c.cached(ctx, key, &cities) {
		return cities, nil
	}

	params := map[string]string{"countryCode": countryCode, "max": "20"}
	if keyword != "" {
		params["keyword"] = strings.ToUpper(keyword)
	}
	body, err := c.get(ctx, "/v1/reference-data/locations/cities", params)
	if err != nil {
		return nil, err
	}

	var raw rawCities
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("amadeus: decode cities: %w", err)
	}
	cities = make([]City, 0, len(raw.Data))
	for _, ct := range raw.Data {
		cc := ct.Address.CountryCode
		if cc == "" {
			cc = countryCode
		}
		cities = append(cities, City{
			Name:        ct.Name,
			IATACode:    ct.IATACode,
			CountryCode: cc,
			StateCode:   ct.Address.StateCode,
			GeoCode:     GeoCode(ct.GeoCode),
		})
	}
	c.store(ctx, key, cities)
	return cities, nil
}

type rawActivities struct {
	Data []struct {
		ID               string   `json:"id"`
		Name             string   `json:"name"`
		ShortDescription string   `json:"shortDescription"`
		Description      string   `json:"description"`
		Category         string   `json:"category"`
		Rating           decimal  `json:"rating"`
		GeoCode          rawGeo   `json:"geoCode"`
		Pictures         []string `json:"pictures"`
		BookingLink      string   `json:"bookingLink"`
		MinimumDuration  string   `json:"minimumDuration"`
		Price            *struct {
			Amount       *decimal `json:"amount"`
			CurrencyCode string   `json:"currencyCode"`
		} `json:"price"`
	} `json:"data"`
}

// SearchActivities lists tours and activities within radiusKm of a point.
func (c *Client) SearchActivities(ctx context.Context, lat, lng float64, radiusKm int) ([]Activity, error) {
	if radiusKm < 1 {
		radiusKm = 1
	}
	body, err := c.get(ctx, "/v1/shopping/activities", map[string]string{
		"latitude":  strconv.FormatFloat(lat, 'f', 6, 64),
		"longitude": strconv.FormatFloat(lng, 'f', 6, 64),
		"radius":    strconv.Itoa(radiusKm),
	})
	if errors.Is(err, errNotFound) {
		return []Activity{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw rawActivities
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("amadeus: decode activities: %w", err)
	}
	acts := make([]Activity, 0, len(raw.Data))
	for _, a := range raw.Data {
		desc := a.ShortDescription
		if desc == "" {
			desc = a.Description
		}
		act := Activity{
			ID:              a.ID,
			Name:            a.Name,
			Description:     desc,
			Category:        a.Category,
			Rating:          float64(a.Rating),
			GeoCode:         GeoCode(a.GeoCode),
			BookingLink:     a.BookingLink,
			Pictures:        a.Pictures,
			MinimumDuration: a.MinimumDuration,
		}
		if a.Price != nil && a.Price.Amount != nil {
			act.Price = &Amount{Value: float64(*a.Price.Amount), Currency: a.Price.CurrencyCode}
		}
		acts = append(acts, act)
	}
	return acts, nil
}
