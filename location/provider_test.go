package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

// fakeGeo calls back with whatever the test configured.
type fakeGeo struct {
	pos   *Position
	perr  *PositionError
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeGeo) GetCurrentPosition(ctx context.Context, _ Options, success func(Position), failure func(PositionError)) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.perr != nil {
		failure(*f.perr)
		return
	}
	if f.pos != nil {
		success(*f.pos)
	}
}

// silentGeo never calls back on its own, it only records late callbacks once released.
type silentGeo struct {
	release chan struct{}
	late    atomic.Int32
}

func (s *silentGeo) GetCurrentPosition(ctx context.Context, _ Options, success func(Position), failure func(PositionError)) {
	<-s.release
	success(Position{Latitude: 1, Longitude: 1})
	failure(PositionError{Code: PositionUnavailable})
	s.late.Add(2)
}

func TestGetCurrentLocation_Success(t *testing.T) {
	geo := &fakeGeo{pos: &Position{Latitude: 34.0195, Longitude: -118.4912, Timestamp: time.Now()}}
	p := NewProvider(geo, DefaultOptions())

	loc, err := p.GetCurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 34.0195, loc.Lat)
	assert.Equal(t, -118.4912, loc.Lng)
	assert.Equal(t, int32(1), geo.calls.Load())
}

func TestGetCurrentLocation_PermissionDenied(t *testing.T) {
	geo := &fakeGeo{perr: &PositionError{Code: PermissionDenied}}
	p := NewProvider(geo, DefaultOptions())

	_, err := p.GetCurrentLocation(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	assert.Equal(t, int32(1), geo.calls.Load(), "no retry")
}

func TestGetCurrentLocation_UnknownCode(t *testing.T) {
	geo := &fakeGeo{perr: &PositionError{Code: 42, Message: "boom"}}
	p := NewProvider(geo, DefaultOptions())

	_, err := p.GetCurrentLocation(context.Background())
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.ErrorContains(t, err, "boom")
}

func TestGetCurrentLocation_Unsupported(t *testing.T) {
	p := NewProvider(nil, DefaultOptions())

	_, err := p.GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGetCurrentLocation_TimeoutSettlesOnce(t *testing.T) {
	geo := &silentGeo{release: make(chan struct{})}
	p := NewProvider(geo, Options{EnableHighAccuracy: true, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := p.GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// Late callbacks must not panic or block.
	close(geo.release)
	assert.Eventually(t, func() bool { return geo.late.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestGetCurrentLocation_ParentCancelled(t *testing.T) {
	geo := &silentGeo{release: make(chan struct{})}
	defer close(geo.release)
	p := NewProvider(geo, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetCurrentLocation(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetCurrentLocation_StaleFix(t *testing.T) {
	geo := &fakeGeo{pos: &Position{Latitude: 1, Longitude: 2, Timestamp: time.Now().Add(-time.Hour)}}
	p := NewProvider(geo, DefaultOptions())

	_, err := p.GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	// A fix within MaximumAge is fine.
	p = NewProvider(geo, Options{Timeout: time.Second, MaximumAge: 2 * time.Hour})
	_, err = p.GetCurrentLocation(context.Background())
	assert.NoError(t, err)
}

func TestGetCurrentLocation_InvalidCoordinates(t *testing.T) {
	geo := &fakeGeo{pos: &Position{Latitude: 91, Longitude: 0}}
	p := NewProvider(geo, DefaultOptions())

	_, err := p.GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Kind
		lat     float64
	}{
		{"position", map[string]string{HeaderLatitude: "-33.89", HeaderLongitude: "151.27", HeaderAccuracy: "12"}, KindUnknown, -33.89},
		{"denied by name", map[string]string{HeaderError: "PERMISSION_DENIED"}, KindPermissionDenied, 0},
		{"timeout by code", map[string]string{HeaderError: "3"}, KindTimeout, 0},
		{"unknown error", map[string]string{HeaderError: "WAT"}, KindUnknown, 0},
		{"nothing reported", map[string]string{}, KindPositionUnavailable, 0},
		{"garbage coordinates", map[string]string{HeaderLatitude: "north", HeaderLongitude: "1"}, KindPositionUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			loc, err := NewProvider(FromHeaders(h), DefaultOptions()).GetCurrentLocation(context.Background())
			if tt.lat != 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.lat, loc.Lat)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

// nmeaLine appends the XOR checksum NMEA receivers put after the asterisk.
func nmeaLine(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func gpsFrom(data string) *SerialGPS {
	g := NewSerialGPS("/dev/ttyTEST", 9600)
	g.open = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	}
	return g
}

func TestSerialGPS_FirstValidFix(t *testing.T) {
	stream := strings.Join([]string{
		"GGA,092750.000,5321.68", // truncated first line
		nmeaLine("GPRMC,092750.000,A,5321.6802,N,00630.3372,W,0.02,31.66,280511,,,A"),
		nmeaLine("GPGGA,092749.000,5321.6802,N,00630.3372,W,0,0,,,M,,M,,"),
		nmeaLine("GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,"),
	}, "\r\n")

	loc, err := NewProvider(gpsFrom(stream), DefaultOptions()).GetCurrentLocation(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 53.361337, loc.Lat, 1e-5)
	assert.InDelta(t, -6.505620, loc.Lng, 1e-5)
}

func TestSerialGPS_HighAccuracySkipsPoorFix(t *testing.T) {
	stream := nmeaLine("GPGGA,092750.000,5321.6802,N,00630.3372,W,1,3,9.7,61.7,M,55.2,M,,") + "\r\n"

	_, err := NewProvider(gpsFrom(stream), DefaultOptions()).GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	opts := DefaultOptions()
	opts.EnableHighAccuracy = false
	_, err = NewProvider(gpsFrom(stream), opts).GetCurrentLocation(context.Background())
	assert.NoError(t, err)
}

func TestSerialGPS_OpenErrors(t *testing.T) {
	g := NewSerialGPS("/dev/ttyTEST", 9600)
	g.open = func() (io.ReadCloser, error) { return nil, fs.ErrPermission }

	_, err := NewProvider(g, DefaultOptions()).GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	g.open = func() (io.ReadCloser, error) { return nil, errors.New("no such device") }
	_, err = NewProvider(g, DefaultOptions()).GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func newMapsGeo(t *testing.T, handler http.HandlerFunc) *MapsGeolocation {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := maps.NewClient(maps.WithAPIKey("test-key"), maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return NewMapsGeolocation(client)
}

func TestMapsGeolocation(t *testing.T) {
	geo := newMapsGeo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geolocation/v1/geolocate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"location":{"lat":21.2765,"lng":-157.8271},"accuracy":1500}`)
	})

	loc, err := NewProvider(geo, DefaultOptions()).GetCurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21.2765, loc.Lat)
	assert.Equal(t, -157.8271, loc.Lng)
}

func TestMapsGeolocation_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not found", `{"error":{"errors":[{"domain":"geolocation","reason":"notFound","message":"Not Found"}],"code":404,"message":"Not Found"}}`, ErrPositionUnavailable},
		{"bad key", `{"error":{"errors":[{"domain":"usageLimits","reason":"keyInvalid","message":"Bad Request"}],"code":400,"message":"API key not valid. Please pass a valid API key."}}`, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := newMapsGeo(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			_, err := NewProvider(geo, DefaultOptions()).GetCurrentLocation(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFromHeaders_Timestamp(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderLatitude, "10")
	h.Set(HeaderLongitude, "20")
	h.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10))

	_, err := NewProvider(FromHeaders(h), DefaultOptions()).GetCurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	opts := DefaultOptions()
	opts.MaximumAge = 2 * time.Hour
	loc, err := NewProvider(FromHeaders(h), opts).GetCurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, loc.Lng)
}

func TestSource(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderLatitude, "45.5")
	h.Set(HeaderLongitude, "-122.6")

	loc, err := ClientSource(DefaultOptions()).Locate(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 45.5, loc.Lat)

	device := DeviceSource(&fakeGeo{pos: &Position{Latitude: 1, Longitude: 2}}, DefaultOptions())
	loc, err = device.Locate(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 1.0, loc.Lat, "device source ignores client headers")

	none := NoSource()
	assert.False(t, none.Enabled())
	_, err = none.Locate(context.Background(), h)
	assert.ErrorIs(t, err, ErrUnsupported)
}
