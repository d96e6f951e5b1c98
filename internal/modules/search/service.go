// README: Provider search dispatch (flights/hotels/cities/activities) with search-history recording.
package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tripwise/internal/maps"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/intent"
	"tripwise/internal/provider/amadeus"
)

var (
	ErrUnknownKind   = errors.New("unknown search kind")
	ErrInvalidDates  = errors.New("invalid travel dates")
	ErrInvalidParams = errors.New("invalid search parameters")
)

// Kind names a searchable resource; it doubles as the search-history bucket name.
type Kind string

const (
	KindFlights    Kind = "flights"
	KindHotels     Kind = "hotels"
	KindCities     Kind = "cities"
	KindActivities Kind = "activities"
)

// Params are the raw query parameters of a search.
type Params map[string]string

func (p Params) get(key string) string { return strings.TrimSpace(p[key]) }

// Provider is the data provider the searches are served from.
type Provider interface {
	SearchFlights(ctx context.Context, q amadeus.FlightQuery) ([]amadeus.FlightOffer, error)
	SearchHotels(ctx context.Context, cityCode string) ([]amadeus.Hotel, error)
	SearchCities(ctx context.Context, countryCode, keyword string) ([]amadeus.City, error)
	SearchActivities(ctx context.Context, lat, lng float64, radiusKm int) ([]amadeus.Activity, error)
}

// Geocoder resolves a place name to coordinates for activity searches.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (maps.Location, error)
}

// History receives raw results for the user's search history.
type History interface {
	StoreSearchResult(userID, bucket string, result any)
}

type Service struct {
	provider Provider
	geocoder Geocoder
	history  History
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Collectors
}

type Option func(*Service)

func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{provider: provider, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one provider search. When userID is non-empty the raw results are
// appended to that user's search history under the kind's bucket.
func (s *Service) Search(ctx context.Context, userID string, kind Kind, p Params) (any, error) {
	var (
		result any
		err    error
	)
	switch kind {
	case KindFlights:
		result, err = s.flights(ctx, p)
	case KindHotels:
		result, err = s.hotels(ctx, p)
	case KindCities:
		result, err = s.cities(ctx, p)
	case KindActivities:
		result, err = s.activities(ctx, p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.metrics.ObserveProvider(string(kind), err)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("search failed")
		return nil, err
	}

	if userID != "" && s.history != nil {
		s.history.StoreSearchResult(userID, string(kind), result)
	}
	return result, nil
}

func (s *Service) flights(ctx context.Context, p Params) ([]amadeus.FlightOffer, error) {
	q := amadeus.FlightQuery{
		Origin:        p.get("origin"),
		Destination:   p.get("destination"),
		DepartureDate: p.get("departure_date"),
		ReturnDate:    p.get("return_date"),
		Adults:        1,
		Max:           10,
	}
	if q.Origin == "" || q.Destination == "" || q.DepartureDate == "" {
		return nil, fmt.Errorf("%w: origin, destination and departure_date are required", ErrInvalidParams)
	}
	if err := ValidateDates(q.DepartureDate, q.ReturnDate, s.now()); err != nil {
		return nil, err
	}
	var err error
	if q.Adults, err = positiveInt(p, "adults", 1); err != nil {
		return nil, err
	}
	if q.Max, err = positiveInt(p, "max_results", 10); err != nil {
		return nil, err
	}
	return s.provider.SearchFlights(ctx, q)
}

func (s *Service) hotels(ctx context.Context, p Params) ([]amadeus.Hotel, error) {
	code := p.get("city_code")
	if len(code) != 3 {
		return nil, fmt.Errorf("%w: city_code must be a 3-letter IATA code", ErrInvalidParams)
	}
	return s.provider.SearchHotels(ctx, code)
}

// cities accepts either an ISO country_code or a country name resolved through the
// alias table.
func (s *Service) cities(ctx context.Context, p Params) ([]amadeus.City, error) {
	code := p.get("country_code")
	if code == "" {
		if name := p.get("country"); name != "" {
			resolved, ok := intent.CountryCode(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown country %q", ErrInvalidParams, name)
			}
			code = resolved
		}
	}
	if len(code) != 2 {
		return nil, fmt.Errorf("%w: country_code must be a 2-letter ISO code", ErrInvalidParams)
	}
	return s.provider.SearchCities(ctx, code, p.get("keyword"))
}

// activities searches around latitude/longitude, geocoding "location" when no
// coordinates are given.
func (s *Service) activities(ctx context.Context, p Params) ([]amadeus.Activity, error) {
	radius, err := positiveInt(p, "radius", 1)
	if err != nil {
		return nil, err
	}

	latStr, lngStr := p.get("latitude"), p.get("longitude")
	if latStr != "" || lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("%w: latitude/longitude", ErrInvalidParams)
		}
		return s.activitiesAround(ctx, lat, lng, radius)
	}

	location := p.get("location")
	if location == "" {
		return nil, fmt.Errorf("%w: latitude and longitude or location are required", ErrInvalidParams)
	}
	if s.geocoder == nil {
		return nil, fmt.Errorf("%w: location lookup is not configured, pass latitude and longitude", ErrInvalidParams)
	}
	loc, err := s.geocoder.Geocode(ctx, location)
	if errors.Is(err, maps.ErrNoLocation) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("location", location).Float64("lat", loc.Lat).Float64("lng", loc.Lng).Msg("geocoded")
	return s.activitiesAround(ctx, loc.Lat, loc.Lng, radius)
}

// activitiesAround returns activities nearest first. Activities without coordinates
// keep their provider order after the located ones.
func (s *Service) activitiesAround(ctx context.Context, lat, lng float64, radius int) ([]amadeus.Activity, error) {
	acts, err := s.provider.SearchActivities(ctx, lat, lng, radius)
	if err != nil {
		return nil, err
	}
	located := func(a amadeus.Activity) bool { return a.GeoCode.Latitude != 0 || a.GeoCode.Longitude != 0 }
	for i := range acts {
		if located(acts[i]) {
			acts[i].DistanceKm = math.Round(maps.HaversineKm(lat, lng, acts[i].GeoCode.Latitude, acts[i].GeoCode.Longitude)*100) / 100
		}
	}
	slices.SortStableFunc(acts, func(a, b amadeus.Activity) int {
		switch la, lb := located(a), located(b); {
		case la && !lb:
			return -1
		case !la && lb:
			return 1
		case !la:
			return 0
		}
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return acts, nil
}

func positiveInt(p Params, key string, def int) (int, error) {
	v := p.get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidParams, key)
	}
	return n, nil
}

// ValidateDates checks YYYY-MM-DD travel dates against today: departure must not be in
// the past; a return date must not be in the past nor before departure.
func ValidateDates(departure, ret string, today time.Time) error {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	dep, err := time.Parse(time.DateOnly, departure)
	if err != nil {
		return fmt.Errorf("%w: departure date %q is not YYYY-MM-DD", ErrInvalidDates, departure)
	}
	if dep.Before(day) {
		return fmt.Errorf("%w: departure date cannot be in the past", ErrInvalidDates)
	}
	if ret == "" {
		return nil
	}
	r, err := time.Parse(time.DateOnly, ret)
	if err != nil {
		return fmt.Errorf("%w: return date %q is not YYYY-MM-DD", ErrInvalidDates, ret)
	}
	if r.Before(day) {
		return fmt.Errorf("%w: return date cannot be in the past", ErrInvalidDates)
	}
	if r.Before(dep) {
		return fmt.Errorf("%w: return date cannot be earlier than departure date", ErrInvalidDates)
	}
	return nil
}
