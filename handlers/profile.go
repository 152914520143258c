package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-beachwise/auth"
	"go-beachwise/logger"
	"go-beachwise/profile"

	"go.uber.org/zap"
)

// GetProfile returns the user's profile, creating it on first view.
func (s *Server) GetProfile(c *gin.Context) {
	sc := auth.Current(c)

	p, err := s.Profiles.GetOrCreate(c.Request.Context(), sc.Identity)
	if err != nil {
		logger.Log.Error("Could not load profile", zap.String("uid", sc.Identity.UID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error", "Could not load your profile.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":     sc.Identity.UID,
		"profile": p,
	})
}

type displayNameRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) UpdateProfile(c *gin.Context) {
	sc := auth.Current(c)

	var req displayNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Error", err.Error())
		return
	}

	p, err := s.Profiles.UpdateDisplayName(c.Request.Context(), sc.Identity, req.DisplayName)
	switch {
	case errors.Is(err, profile.ErrBlankDisplayName):
		fail(c, http.StatusBadRequest, "Error", "Display name cannot be empty.")
		return
	case errors.Is(err, profile.ErrLongDisplayName):
		fail(c, http.StatusBadRequest, "Error", err.Error())
		return
	case err != nil:
		logger.Log.Error("Could not update display name", zap.String("uid", sc.Identity.UID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error", "Failed to update display name.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":   "Success",
		"message": "Display name updated.",
		"profile": p,
	})
}
