package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// Rough user equivalent range error used to turn HDOP into meters.
const hdopToMeters = 5.0

// SerialGPS reads NMEA sentences from a GPS receiver on a serial port.
type SerialGPS struct {
	port     string
	baudRate int
	// Fixes with a worse HDOP are skipped when high accuracy is requested.
	maxHDOP float64
	open    func() (io.ReadCloser, error)
}

func NewSerialGPS(port string, baudRate int) *SerialGPS {
	g := &SerialGPS{
		port:     port,
		baudRate: baudRate,
		maxHDOP:  5,
	}
	g.open = func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{Name: g.port, Baud: g.baudRate})
	}
	return g
}

// GetCurrentPosition opens the port and waits for the first usable GGA fix.
func (g *SerialGPS) GetCurrentPosition(ctx context.Context, opts Options, success func(Position), failure func(PositionError)) {
	s, err := g.open()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			failure(PositionError{Code: PermissionDenied, Message: "no permission to open GPS device " + g.port, Err: err})
			return
		}
		failure(PositionError{Code: PositionUnavailable, Message: "cannot open GPS device " + g.port, Err: err})
		return
	}

	// Closing the port unblocks the scanner once the request is abandoned.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer func() {
		if stop() {
			s.Close()
		}
	}()

	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		// The first line after opening the port is usually truncated.
		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}
		if opts.EnableHighAccuracy && gga.HDOP > g.maxHDOP {
			continue
		}

		success(Position{
			Latitude:  gga.Latitude,
			Longitude: gga.Longitude,
			Accuracy:  gga.HDOP * hdopToMeters,
			Timestamp: time.Now(),
		})
		return
	}

	if ctx.Err() != nil {
		failure(PositionError{Code: Timeout, Err: ctx.Err()})
		return
	}
	failure(PositionError{Code: PositionUnavailable, Message: "no valid GPS fix found", Err: scanner.Err()})
}
