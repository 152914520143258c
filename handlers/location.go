package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-beachwise/location"
	"go-beachwise/logger"
	"go-beachwise/metrics"

	"go.uber.org/zap"
)

// GetLocation returns one fresh fix.
func (s *Server) GetLocation(c *gin.Context) {
	loc, err := s.Location.Locate(c.Request.Context(), c.Request.Header)
	if err != nil {
		status, details := locationFailure(err)
		fail(c, status, "Location Error", details)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": loc})
}

func locationFailure(err error) (int, string) {
	kind := location.KindOf(err)
	metrics.LocationFailures.WithLabelValues(kind.String()).Inc()
	logger.Log.Info("Location lookup failed", zap.Stringer("kind", kind), zap.Error(err))

	details := "Could not fetch location. Please ensure location services are enabled and permissions granted."
	var le *location.Error
	if errors.As(err, &le) && le.Message != "" {
		details = le.Message
	}

	switch kind {
	case location.KindPermissionDenied:
		return http.StatusForbidden, details
	case location.KindPositionUnavailable:
		return http.StatusServiceUnavailable, details
	case location.KindTimeout:
		return http.StatusGatewayTimeout, details
	case location.KindUnsupported:
		return http.StatusNotImplemented, details
	default:
		return http.StatusInternalServerError, details
	}
}
