package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"googlemaps.github.io/maps"

	"go-beachwise/types"
)

// mapsClient is a singleton maps client instance.
var (
	mapsClient *maps.Client
	clientOnce sync.Once
	clientErr  error
)

// InitMapsClient initializes and returns a singleton Google Maps client.
func InitMapsClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	clientOnce.Do(func() {
		if apiKey == "" {
			clientErr = fmt.Errorf("MAPS_CREDENTIALS environment variable not set")
			return
		}
		mapsClient, clientErr = maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
		if clientErr != nil {
			clientErr = fmt.Errorf("failed to create maps client: %w", clientErr)
		}
	})
	return mapsClient, clientErr
}

// ErrNoResults is returned when nothing is known about a location.
var ErrNoResults = errors.New("no geocode results")

// Geocoder turns coordinates into a human readable place name.
type Geocoder struct {
	client *maps.Client
}

func NewGeocoder(client *maps.Client) *Geocoder {
	return &Geocoder{client: client}
}

// PlaceName reverse geocodes loc and returns the formatted address of the best match.
// Natural features such as beaches are preferred over street addresses.
func (g *Geocoder) PlaceName(ctx context.Context, loc types.Location) (string, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: loc.Lat, Lng: loc.Lng},
	}

	// Reverse geocode: get the addresses for the given latitude and longitude.
	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNoResults
	}

	for _, r := range results {
		for _, t := range r.Types {
			if t == "natural_feature" || t == "park" {
				return r.FormattedAddress, nil
			}
		}
	}
	return results[0].FormattedAddress, nil
}
