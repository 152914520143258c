package routes

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"go-beachwise/auth"
	"go-beachwise/handlers"
	"go-beachwise/logger"
	"go-beachwise/metrics"

	"go.uber.org/zap"
)

func SetupRouter(s *handlers.Server, clientURL string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(), metrics.Middleware(), CORSMiddleware(clientURL))

	r.GET("/", handlers.Welcome)
	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/beachwise")
	{
		api.POST("/signup", s.Signup)
		api.POST("/login", s.Login)
		api.GET("/nav", s.Nav)
	}

	// Views that need a signed-in user
	protected := api.Group("")
	protected.Use(auth.RequireSession(s.Auth, s.Sessions))
	{
		protected.POST("/logout", s.Logout)
		protected.GET("/location", s.GetLocation)
		protected.POST("/classify", s.ClassifyTrash)
		protected.GET("/items", s.ListItems)
		protected.POST("/summarize", s.SummarizeCleanup)
		protected.POST("/cleanups", s.SubmitCleanup)
		protected.GET("/cleanups", s.ListCleanups)
		protected.GET("/profile", s.GetProfile)
		protected.PATCH("/profile", s.UpdateProfile)
		protected.GET("/groups", s.Groups)
		protected.GET("/heatmap", s.Heatmap)
	}

	return r
}

// StartPprofServer serves the profiling endpoints on their own listener.
// addr should only be reachable internally.
func StartPprofServer(addr string) {
	pprofRouter := gin.New()
	pprof.Register(pprofRouter)

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := pprofRouter.Run(addr); err != nil {
			logger.Log.Error("pprof server stopped", zap.Error(err))
		}
	}()
}
