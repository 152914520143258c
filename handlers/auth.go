package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-beachwise/auth"
	"go-beachwise/logger"

	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup creates the account, writes the initial profile and opens a session.
func (s *Server) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Signup Failed", "A valid email and a password are required.")
		return
	}

	creds, err := s.Auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Info("Signup rejected", zap.Error(err))
		status, details := authFailure(err)
		fail(c, status, "Signup Failed", details)
		return
	}

	// The profile is created lazily later if this write fails.
	if _, err := s.Profiles.CreateProfile(c.Request.Context(), creds.Identity); err != nil {
		logger.Log.Warn("Could not create profile at signup",
			zap.String("uid", creds.Identity.UID), zap.Error(err))
	}

	s.startSession(c, creds)
	c.JSON(http.StatusCreated, gin.H{
		"user":      creds.Identity,
		"token":     creds.SessionToken,
		"expiresIn": int(creds.ExpiresIn.Seconds()),
		"redirect":  "/profile",
	})
}

func (s *Server) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Login Failed", "A valid email and a password are required.")
		return
	}

	creds, err := s.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Info("Login rejected", zap.Error(err))
		status, details := authFailure(err)
		fail(c, status, "Login Failed", details)
		return
	}

	s.startSession(c, creds)
	c.JSON(http.StatusOK, gin.H{
		"user":      creds.Identity,
		"token":     creds.SessionToken,
		"expiresIn": int(creds.ExpiresIn.Seconds()),
		"redirect":  "/profile",
	})
}

// Logout revokes every session of the user and drops their session contexts.
func (s *Server) Logout(c *gin.Context) {
	sc := auth.Current(c)

	if err := s.Auth.SignOut(c.Request.Context(), sc.Identity.UID); err != nil {
		logger.Log.Error("Sign out failed", zap.String("uid", sc.Identity.UID), zap.Error(err))
		fail(c, http.StatusBadGateway, "Logout Failed", "Could not sign out. Please try again.")
		return
	}

	closed := s.Sessions.CloseUser(sc.Identity.UID)
	auth.ClearSessionCookie(c, s.SecureCookies)
	logger.Log.Info("Signed out", zap.String("uid", sc.Identity.UID), zap.Int("sessions", closed))

	c.JSON(http.StatusOK, gin.H{
		"message":  "Logged Out Successfully",
		"redirect": "/login",
	})
}

func (s *Server) startSession(c *gin.Context, creds auth.Credentials) {
	sc := s.Sessions.Open(creds.SessionToken, creds.Identity)
	ttl := creds.ExpiresIn
	if ttl <= 0 {
		ttl = s.SessionTTL
	}
	auth.SetSessionCookie(c, creds.SessionToken, ttl, s.SecureCookies)
	logger.Log.Info("Session opened", zap.String("uid", creds.Identity.UID), zap.String("session", sc.ID[:12]))
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, "An account with this email already exists."
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "Password should be at least 6 characters."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password."
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please sign in again."
	default:
		return http.StatusBadGateway, "The sign-in service is unavailable. Please try again."
	}
}
