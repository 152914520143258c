package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-beachwise/auth"
	"go-beachwise/logger"
	"go-beachwise/metrics"
	"go-beachwise/processor"
	"go-beachwise/summarization"
	"go-beachwise/types"

	"go.uber.org/zap"
)

// SummarizeCleanup summarizes an arbitrary list of image refs without storing anything.
func (s *Server) SummarizeCleanup(c *gin.Context) {
	var input types.SummarizeCleanupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Summary Failed", err.Error())
		return
	}

	out, err := s.Summarizer.Summarize(c.Request.Context(), input.ImageURLs)
	if err != nil {
		status, details := summaryFailure(err)
		fail(c, status, "Summary Failed", details)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SubmitCleanup stores everything logged since the last submission as one cleanup.
func (s *Server) SubmitCleanup(c *gin.Context) {
	release, ok := s.singleFlight(c, "cleanup")
	if !ok {
		return
	}
	defer release()

	sc := auth.Current(c)
	cleanup, err := s.Cleanups.Submit(c.Request.Context(), sc)
	if err != nil {
		if errors.Is(err, processor.ErrNothingToSubmit) {
			fail(c, http.StatusBadRequest, "Nothing To Submit", "Log some trash before submitting a cleanup.")
			return
		}
		logger.Log.Error("Cleanup submission failed", zap.String("uid", sc.Identity.UID), zap.Error(err))
		status, details := summaryFailure(err)
		fail(c, status, "Cleanup Failed", details)
		return
	}

	metrics.CleanupsSubmitted.Inc()
	c.JSON(http.StatusCreated, gin.H{"cleanup": cleanup})
}

type historyQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// ListCleanups returns the user's stored cleanups, newest first.
func (s *Server) ListCleanups(c *gin.Context) {
	if s.History == nil {
		c.JSON(http.StatusOK, gin.H{"cleanups": []types.Cleanup{}})
		return
	}

	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, "Error", err.Error())
		return
	}

	sc := auth.Current(c)
	cleanups, err := s.History.ListCleanups(c.Request.Context(), sc.Identity.UID, q.Limit)
	if err != nil {
		logger.Log.Error("Could not list cleanups", zap.String("uid", sc.Identity.UID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error", "Could not load your cleanups.")
		return
	}
	if cleanups == nil {
		cleanups = []types.Cleanup{}
	}
	c.JSON(http.StatusOK, gin.H{"cleanups": cleanups})
}

func summaryFailure(err error) (int, string) {
	switch {
	case errors.Is(err, summarization.ErrNoImages):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, summarization.ErrSummaryUnavailable):
		return http.StatusBadGateway, "Could not summarize the cleanup. Please try again."
	default:
		return http.StatusInternalServerError, "Could not save the cleanup. Please try again."
	}
}
