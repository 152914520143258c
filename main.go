package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"go-beachwise/auth"
	"go-beachwise/classifier"
	"go-beachwise/config"
	"go-beachwise/cronjobs"
	"go-beachwise/db"
	"go-beachwise/geocode"
	"go-beachwise/handlers"
	"go-beachwise/images"
	"go-beachwise/llm"
	"go-beachwise/location"
	"go-beachwise/logger"
	"go-beachwise/processor"
	"go-beachwise/profile"
	"go-beachwise/routes"
	"go-beachwise/session"
	"go-beachwise/summarization"

	"go.uber.org/zap"
)

func main() {
	// Load .env and environment
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.LogLevel, zap.String("service", "beachwise")); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	logger.Log.Info("Starting BeachWise",
		zap.String("clientURL", cfg.ClientURL),
		zap.String("aiProvider", cfg.AIProvider),
		zap.String("locationSource", cfg.LocationSource))

	ctx := context.Background()

	// Init Firebase: Firestore, Auth, Storage
	fbApp, err := db.InitApp(ctx, cfg.FirebaseCredentials, cfg.FirebaseStorageBucket)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	firestoreClient, err := db.InitFirestore(ctx, fbApp)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Firestore", zap.Error(err))
	}
	defer db.CloseFirestore()
	store := db.NewStore(firestoreClient)

	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Firebase Auth", zap.Error(err))
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.FirebaseAPIKey))
	if err != nil {
		logger.Log.Fatal("Failed to initialize Identity Toolkit", zap.Error(err))
	}

	photos := newImageStore(ctx, cfg, fbApp)

	// Remote model
	model, err := newModel(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize model", zap.Error(err))
	}

	// Location and place names
	locator, err := newLocationSource(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize location source", zap.Error(err))
	}
	var places processor.PlaceNamer
	if cfg.MapsAPIKey != "" {
		mapsClient, err := geocode.InitMapsClient(cfg.MapsAPIKey)
		if err != nil {
			logger.Log.Fatal("Failed to initialize Maps client", zap.Error(err))
		}
		places = geocode.NewGeocoder(mapsClient)
	}

	profiles := profile.NewService(store)
	summarizer := summarization.New(model)

	server := &handlers.Server{
		Auth:          auth.NewFirebaseProvider(authClient, toolkit, cfg.SessionTTL),
		Sessions:      session.NewRegistry(cfg.SessionTTL),
		Guard:         session.NewGuard(),
		Location:      locator,
		Classifier:    classifier.New(model),
		Summarizer:    summarizer,
		Images:        photos,
		Profiles:      profiles,
		Cleanups:      processor.NewCleanupProcessor(store, summarizer, profiles, places),
		History:       store,
		Heatmaps:      store,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies(),
	}

	// Initialize cron jobs
	scheduler, err := cronjobs.InitCronJobs(store, cfg.HeatmapSchedule, cfg.HeatmapResolution)
	if err != nil {
		logger.Log.Fatal("Failed to schedule cron jobs", zap.Error(err))
	}

	if cfg.PprofAddr != "" {
		routes.StartPprofServer(cfg.PprofAddr)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(server, cfg.ClientURL),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Log.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for a signal, then drain
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Log.Info("Shutting down")

	<-scheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
}

func newModel(ctx context.Context, cfg config.Config) (llm.Model, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, genai.HTTPOptions{})
		if err != nil {
			return nil, err
		}
		return llm.NewGeminiModel(client, cfg.GeminiModel), nil
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable not set")
		}
		return llm.NewOpenAIModel(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel), nil
	}
}

func newLocationSource(cfg config.Config) (*location.Source, error) {
	opts := location.DefaultOptions()
	opts.Timeout = cfg.LocationTimeout

	switch cfg.LocationSource {
	case config.LocationSourceGPS:
		return location.DeviceSource(location.NewSerialGPS(cfg.GPSDevicePort, cfg.GPSBaudRate), opts), nil
	case config.LocationSourceMaps:
		client, err := geocode.InitMapsClient(cfg.MapsAPIKey)
		if err != nil {
			return nil, err
		}
		return location.DeviceSource(location.NewMapsGeolocation(client), opts), nil
	case config.LocationSourceNone:
		return location.NoSource(), nil
	default:
		// A forwarded fix was taken on the device before the request started.
		opts.MaximumAge = cfg.LocationTimeout
		return location.ClientSource(opts), nil
	}
}

// newImageStore uploads to the Firebase bucket when one is configured and falls back
// to content hashes otherwise.
func newImageStore(ctx context.Context, cfg config.Config, fbApp *firebase.App) images.Store {
	if cfg.FirebaseStorageBucket == "" {
		return images.HashStore{}
	}

	storageClient, err := fbApp.Storage(ctx)
	if err != nil {
		logger.Log.Warn("Firebase Storage unavailable, storing image hashes only", zap.Error(err))
		return images.HashStore{}
	}
	bucket, err := storageClient.Bucket(cfg.FirebaseStorageBucket)
	if err != nil {
		logger.Log.Warn("Storage bucket unavailable, storing image hashes only", zap.Error(err))
		return images.HashStore{}
	}
	return images.WithFallback(images.NewBucketStore(bucket, cfg.FirebaseStorageBucket), images.HashStore{})
}
