package location

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Headers the mobile client uses to forward its browser geolocation result.
const (
	HeaderLatitude  = "X-Geolocation-Latitude"
	HeaderLongitude = "X-Geolocation-Longitude"
	HeaderAccuracy  = "X-Geolocation-Accuracy"
	// Milliseconds since the epoch, as in the browser's GeolocationPosition.timestamp.
	HeaderTimestamp = "X-Geolocation-Timestamp"
	HeaderError     = "X-Geolocation-Error"
)

// Reported is a Geolocation backed by a fix the client already took on the device.
// Without a timestamp header the reading is stamped when the provider asks for it.
type Reported struct {
	pos    *Position
	errRep *PositionError
}

// FromHeaders builds a Reported capability from request headers. A request that carries
// neither coordinates nor an error code yields PositionUnavailable.
func FromHeaders(h http.Header) *Reported {
	if code := h.Get(HeaderError); code != "" {
		c, ok := ParseErrorCode(code)
		if !ok {
			return &Reported{errRep: &PositionError{Message: "client reported unknown geolocation error " + strconv.Quote(code)}}
		}
		return &Reported{errRep: &PositionError{Code: c}}
	}

	lat, latErr := strconv.ParseFloat(h.Get(HeaderLatitude), 64)
	lng, lngErr := strconv.ParseFloat(h.Get(HeaderLongitude), 64)
	if latErr != nil || lngErr != nil {
		return &Reported{errRep: &PositionError{Code: PositionUnavailable, Message: "client did not report a position"}}
	}

	// Accuracy is optional.
	acc, _ := strconv.ParseFloat(h.Get(HeaderAccuracy), 64)

	var ts time.Time
	if ms, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64); err == nil {
		ts = time.UnixMilli(ms)
	}

	return &Reported{pos: &Position{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  acc,
		Timestamp: ts,
	}}
}

func (r *Reported) GetCurrentPosition(_ context.Context, _ Options, success func(Position), failure func(PositionError)) {
	if r.errRep != nil {
		failure(*r.errRep)
		return
	}
	pos := *r.pos
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	success(pos)
}
