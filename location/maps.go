package location

import (
	"context"
	"errors"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

// MapsGeolocation estimates the server's position with the Google Geolocation API.
// It is meant for fixed installations such as a beach kiosk.
type MapsGeolocation struct {
	client *maps.Client
}

func NewMapsGeolocation(client *maps.Client) *MapsGeolocation {
	return &MapsGeolocation{client: client}
}

func (m *MapsGeolocation) GetCurrentPosition(ctx context.Context, _ Options, success func(Position), failure func(PositionError)) {
	res, err := m.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		failure(classifyMapsError(ctx, err))
		return
	}

	success(Position{
		Latitude:  res.Location.Lat,
		Longitude: res.Location.Lng,
		Accuracy:  res.Accuracy,
		Timestamp: time.Now(),
	})
}

// The maps client only surfaces the message of the API error.
func classifyMapsError(ctx context.Context, err error) PositionError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return PositionError{Code: Timeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "key"), strings.Contains(msg, "denied"), strings.Contains(msg, "forbidden"):
		return PositionError{Code: PermissionDenied, Message: "geolocation API rejected the request", Err: err}
	default:
		return PositionError{Code: PositionUnavailable, Err: err}
	}
}
