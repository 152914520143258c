package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-beachwise/logger"

	"go.uber.org/zap"
)

type NavItem struct {
	Href   string `json:"href"`
	Label  string `json:"label"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

// The heatmap view is still routed but no longer in the bar.
var navItems = []NavItem{
	{Href: "/location", Label: "Location", Icon: "map-pin"},
	{Href: "/groups", Label: "Groups", Icon: "users"},
	{Href: "/profile", Label: "Profile", Icon: "user-circle"},
}

// Navigation returns the bottom navigation bar for path. An item is active on an exact
// match, and every item except /location is also active for nested paths.
func Navigation(path string) []NavItem {
	items := make([]NavItem, len(navItems))
	for i, item := range navItems {
		item.Active = path == item.Href || (item.Href != "/location" && strings.HasPrefix(path, item.Href))
		items[i] = item
	}
	return items
}

func (s *Server) Nav(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": Navigation(c.Query("path"))})
}

func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Hello, welcome to BeachWise!",
	})
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.Sessions.Count(),
		"inFlight": s.Guard.InFlight(),
	})
}

func (s *Server) Groups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":       "Community Forum",
		"description": "Connect with others, organize cleanups, and share progress.",
		"status":      "This section is under construction.",
		"planned": []string{
			"Join or create local cleanup groups.",
			"Discuss cleanup strategies and findings.",
			"Organize group cleanup events.",
		},
	})
}

// Heatmap is still a placeholder view, but it carries the latest rollup when there is one.
func (s *Server) Heatmap(c *gin.Context) {
	resp := gin.H{
		"title":       "Trash Heatmap",
		"description": "Visualize trash concentration based on logged data.",
		"status":      "Heatmap visualization coming soon!",
		"planned": []string{
			"Most common types of trash found.",
			"Trends over time.",
		},
		"heatmap": nil,
	}

	if s.Heatmaps != nil {
		h, err := s.Heatmaps.GetHeatmap(c.Request.Context())
		if err != nil {
			logger.Log.Warn("Could not load heatmap", zap.Error(err))
		} else if h != nil {
			resp["heatmap"] = h
		}
	}

	c.JSON(http.StatusOK, resp)
}
