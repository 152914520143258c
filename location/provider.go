package location

import (
	"context"
	"math"
	"sync"
	"time"

	"go-beachwise/types"
)

// Options are the knobs of a single position request.
type Options struct {
	EnableHighAccuracy bool
	// Timeout <= 0 waits for as long as the caller's context allows.
	Timeout time.Duration
	// MaximumAge is how old a cached fix may be. Zero forces a fresh reading.
	MaximumAge time.Duration
}

// DefaultOptions asks for the best fix available, fresh, within ten seconds.
func DefaultOptions() Options {
	return Options{
		EnableHighAccuracy: true,
		Timeout:            10 * time.Second,
		MaximumAge:         0,
	}
}

// Position is a fix reported by a Geolocation capability.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy in meters, zero when unknown.
	Accuracy float64
	// Timestamp of the reading, zero when unknown.
	Timestamp time.Time
}

// Geolocation is a platform capability that can produce one position fix.
// Implementations call exactly one of success or failure, possibly after ctx is done;
// the Provider ignores anything reported after it has settled.
type Geolocation interface {
	GetCurrentPosition(ctx context.Context, opts Options, success func(Position), failure func(PositionError))
}

// Provider turns a callback based Geolocation into a single blocking call.
type Provider struct {
	geo  Geolocation
	opts Options
	now  func() time.Time
}

// NewProvider returns a Provider for geo. A nil geo yields a provider that always fails
// with ErrUnsupported.
func NewProvider(geo Geolocation, opts Options) *Provider {
	return &Provider{
		geo:  geo,
		opts: opts,
		now:  time.Now,
	}
}

type outcome struct {
	loc types.Location
	err error
}

// GetCurrentLocation requests one fresh fix. It never retries.
func (p *Provider) GetCurrentLocation(ctx context.Context) (types.Location, error) {
	if p == nil || p.geo == nil {
		return types.Location{}, ErrUnsupported
	}

	start := p.now()

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if p.opts.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome, 1)
	var once sync.Once
	settle := func(o outcome) {
		once.Do(func() { done <- o })
	}

	go p.geo.GetCurrentPosition(reqCtx, p.opts,
		func(pos Position) {
			settle(p.accept(pos, start))
		},
		func(perr PositionError) {
			settle(outcome{err: perr.toError()})
		},
	)

	select {
	case o := <-done:
		return o.loc, o.err
	case <-reqCtx.Done():
		// Claim the settlement so a late callback cannot resolve this request again.
		settle(outcome{})
		if err := ctx.Err(); err != nil {
			return types.Location{}, err
		}
		return types.Location{}, &Error{Kind: KindTimeout, Message: ErrTimeout.Message, Err: reqCtx.Err()}
	}
}

func (p *Provider) accept(pos Position, start time.Time) outcome {
	if !validCoordinates(pos.Latitude, pos.Longitude) {
		return outcome{err: &Error{Kind: KindPositionUnavailable, Message: "capability reported coordinates out of range"}}
	}
	if !pos.Timestamp.IsZero() && pos.Timestamp.Before(start.Add(-p.opts.MaximumAge)) {
		return outcome{err: &Error{Kind: KindPositionUnavailable, Message: "capability reported a stale fix"}}
	}
	return outcome{loc: types.Location{Lat: pos.Latitude, Lng: pos.Longitude}}
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
