package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-beachwise/auth"
	"go-beachwise/classifier"
	"go-beachwise/llm"
	"go-beachwise/logger"
	"go-beachwise/metrics"
	"go-beachwise/types"

	"go.uber.org/zap"
)

// ClassifyTrash locates the user, classifies the photo and logs the result in the session.
// Nothing is logged unless every step succeeds.
func (s *Server) ClassifyTrash(c *gin.Context) {
	release, ok := s.singleFlight(c, "classify")
	if !ok {
		metrics.Classifications.WithLabelValues("busy").Inc()
		return
	}
	defer release()

	sc := auth.Current(c)
	ctx := c.Request.Context()
	log := logger.Log.With(zap.String("uid", sc.Identity.UID))

	// 1. Validate the photo before doing anything remote
	var input types.ClassifyTrashInput
	if err := c.ShouldBindJSON(&input); err != nil {
		metrics.Classifications.WithLabelValues("invalid_photo").Inc()
		fail(c, http.StatusBadRequest, "No Image", "Please capture or select an image first.")
		return
	}
	photo, err := llm.ParseDataURI(input.PhotoDataURI)
	if err != nil {
		metrics.Classifications.WithLabelValues("invalid_photo").Inc()
		fail(c, http.StatusBadRequest, "No Image", classifier.ErrInvalidPhoto.Error())
		return
	}

	// 2. The location current at call time
	var loc *types.Location
	if s.Location.Enabled() {
		l, err := s.Location.Locate(ctx, c.Request.Header)
		if err != nil {
			metrics.Classifications.WithLabelValues("location_error").Inc()
			status, _ := locationFailure(err)
			fail(c, status, "Location Unknown", "Cannot log trash without location data. Please enable location services.")
			return
		}
		loc = &l
	}

	// 3. Classify
	result, err := s.Classifier.Classify(ctx, input)
	if err != nil {
		s.classificationFailed(c, err)
		return
	}

	// 4. Keep the photo somewhere the summarizer can reach it later
	ref, err := s.Images.Put(ctx, sc.Identity.UID, photo)
	if err != nil {
		log.Error("Could not store photo", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Classification Failed", "Could not store the photo. Please try again.")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		fail(c, http.StatusInternalServerError, "Classification Failed", err.Error())
		return
	}
	item := types.TrashItem{
		ID:         id.String(),
		ImageRef:   ref,
		TrashType:  result.TrashType,
		Confidence: result.Confidence,
		Location:   loc,
		LoggedAt:   time.Now().UTC(),
	}

	// 5. Log it
	sc.Log.Append(item)
	metrics.Classifications.WithLabelValues("ok").Inc()
	log.Info("Trash classified", zap.String("item", item.ID), zap.String("trashType", item.TrashType),
		zap.Float64("confidence", item.Confidence))

	c.JSON(http.StatusCreated, gin.H{
		"title":   "Trash Classified!",
		"message": classifiedMessage(item),
		"item":    item,
	})
}

func (s *Server) classificationFailed(c *gin.Context, err error) {
	if errors.Is(err, classifier.ErrInvalidPhoto) {
		metrics.Classifications.WithLabelValues("invalid_photo").Inc()
		fail(c, http.StatusBadRequest, "No Image", err.Error())
		return
	}

	outcome := "error"
	var ce *classifier.ClassificationError
	if errors.As(err, &ce) {
		outcome = ce.Kind.String()
	}
	metrics.Classifications.WithLabelValues(outcome).Inc()
	logger.Log.Warn("Classification failed", zap.String("outcome", outcome), zap.Error(err))

	status := http.StatusBadGateway
	if !errors.Is(err, classifier.ErrClassificationUnavailable) {
		status = http.StatusInternalServerError
	}
	fail(c, status, "Classification Failed", "Could not classify the trash item. Please try again.")
}

func classifiedMessage(item types.TrashItem) string {
	msg := fmt.Sprintf("Identified as: %s (Confidence: %.0f%%)", item.TrashType, item.Confidence*100)
	if item.Location != nil {
		msg += fmt.Sprintf(" at %.4f, %.4f", item.Location.Lat, item.Location.Lng)
	}
	return msg
}

// ListItems returns the session log, newest first.
func (s *Server) ListItems(c *gin.Context) {
	sc := auth.Current(c)
	c.JSON(http.StatusOK, gin.H{
		"items":   sc.Log.List(),
		"pending": len(sc.Pending()),
	})
}
