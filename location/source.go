package location

import (
	"context"
	"net/http"

	"go-beachwise/types"
)

// Source decides which Geolocation capability serves an incoming request.
type Source struct {
	opts     Options
	geo      Geolocation
	reported bool
}

// ClientSource reads the fix the mobile client forwarded in the request headers.
func ClientSource(opts Options) *Source {
	return &Source{opts: opts, reported: true}
}

// DeviceSource uses one capability attached to the server, such as a GPS receiver.
func DeviceSource(geo Geolocation, opts Options) *Source {
	return &Source{opts: opts, geo: geo}
}

// NoSource has no capability at all. Every lookup fails with ErrUnsupported.
func NoSource() *Source {
	return &Source{}
}

// Enabled reports whether lookups can ever succeed.
func (s *Source) Enabled() bool {
	return s != nil && (s.reported || s.geo != nil)
}

// Locate performs one single-shot lookup for a request.
func (s *Source) Locate(ctx context.Context, h http.Header) (types.Location, error) {
	if !s.Enabled() {
		return types.Location{}, ErrUnsupported
	}
	geo := s.geo
	if s.reported {
		geo = FromHeaders(h)
	}
	return NewProvider(geo, s.opts).GetCurrentLocation(ctx)
}
