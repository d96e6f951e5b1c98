package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// ErrNoLocation is returned when Google has no match for the address.
var ErrNoLocation = errors.New("maps: location not found")

// Location is a geocoded place.
type Location struct {
	Address string
	Lat     float64
	Lng     float64
}

// Geocoder resolves free-text place names to coordinates via the Google Geocoding API.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a new Geocoder with the given API Key.
// Extra client options (e.g. maps.WithBaseURL) are passed through.
func NewGeocoder(apiKey string, opts ...maps.ClientOption) (*Geocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Geocode returns the best match for address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, ErrNoLocation
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: "en",
	})
	if err != nil {
		return Location{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrNoLocation, address)
	}
	r := results[0]
	return Location{
		Address: r.FormattedAddress,
		Lat:     r.Geometry.Location.Lat,
		Lng:     r.Geometry.Location.Lng,
	}, nil
}
