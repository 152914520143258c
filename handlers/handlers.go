package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-beachwise/auth"
	"go-beachwise/images"
	"go-beachwise/session"
	"go-beachwise/types"
)

type Locator interface {
	Enabled() bool
	Locate(ctx context.Context, h http.Header) (types.Location, error)
}

type TrashClassifier interface {
	Classify(ctx context.Context, input types.ClassifyTrashInput) (types.ClassifyTrashOutput, error)
}

type CleanupSummarizer interface {
	Summarize(ctx context.Context, imageRefs []string) (types.SummarizeCleanupOutput, error)
}

type ProfileService interface {
	CreateProfile(ctx context.Context, identity types.Identity) (*types.UserProfile, error)
	GetOrCreate(ctx context.Context, identity types.Identity) (*types.UserProfile, error)
	UpdateDisplayName(ctx context.Context, identity types.Identity, name string) (*types.UserProfile, error)
}

type CleanupSubmitter interface {
	Submit(ctx context.Context, sc *session.Context) (types.Cleanup, error)
}

type CleanupHistory interface {
	ListCleanups(ctx context.Context, uid string, limit int) ([]types.Cleanup, error)
}

type HeatmapReader interface {
	GetHeatmap(ctx context.Context) (*types.Heatmap, error)
}

// Server holds everything the routed views need. History and Heatmaps are optional.
type Server struct {
	Auth       auth.Provider
	Sessions   *session.Registry
	Guard      *session.Guard
	Location   Locator
	Classifier TrashClassifier
	Summarizer CleanupSummarizer
	Images     images.Store
	Profiles   ProfileService
	Cleanups   CleanupSubmitter
	History    CleanupHistory
	Heatmaps   HeatmapReader

	SessionTTL    time.Duration
	SecureCookies bool
}

// fail writes the JSON error the client shows as a notification: error is the title,
// details the description.
func fail(c *gin.Context, status int, title, details string) {
	c.JSON(status, gin.H{
		"error":   title,
		"details": details,
	})
}

// singleFlight claims op for the current session or answers 409.
func (s *Server) singleFlight(c *gin.Context, op string) (release func(), ok bool) {
	sc := auth.Current(c)
	release, err := s.Guard.Acquire(session.Key(sc.ID, op))
	if err != nil {
		fail(c, http.StatusConflict, "Busy", "Please wait for the previous request to finish.")
		return nil, false
	}
	return release, true
}
