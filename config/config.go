package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Location sources accepted by LOCATION_SOURCE.
const (
	LocationSourceClient = "client"
	LocationSourceGPS    = "gps"
	LocationSourceMaps   = "maps"
	LocationSourceNone   = "none"
)

// AI providers accepted by AI_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Port      string
	ClientURL string
	LogLevel  string
	// Empty disables the pprof listener.
	PprofAddr string

	// Base64 encoded service account JSON.
	FirebaseCredentials   string
	FirebaseAPIKey        string
	FirebaseStorageBucket string
	SessionTTL            time.Duration

	AIProvider   string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	MapsAPIKey string

	LocationSource  string
	LocationTimeout time.Duration
	GPSDevicePort   string
	GPSBaudRate     int

	HeatmapSchedule   string
	HeatmapResolution int
}

// Load reads the .env file if there is one and builds the Config from the environment.
// A missing .env is not an error; deployed instances get their variables injected.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		ClientURL:             os.Getenv("CLIENT_URL"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PprofAddr:             os.Getenv("PPROF_ADDR"),
		FirebaseCredentials:   os.Getenv("FIREBASE_CREDENTIALS"),
		FirebaseAPIKey:        os.Getenv("FIREBASE_API_KEY"),
		FirebaseStorageBucket: os.Getenv("FIREBASE_STORAGE_BUCKET"),
		AIProvider:            strings.ToLower(getEnv("AI_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		MapsAPIKey:            os.Getenv("MAPS_CREDENTIALS"),
		LocationSource:        strings.ToLower(getEnv("LOCATION_SOURCE", LocationSourceClient)),
		GPSDevicePort:         getEnv("GPS_DEVICE_PORT", "/dev/ttyUSB0"),
		HeatmapSchedule:       getEnv("HEATMAP_SCHEDULE", "*/10 * * * *"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 5*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LocationTimeout, err = getDuration("LOCATION_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GPSBaudRate, err = getInt("GPS_BAUD_RATE", 9600); err != nil {
		return Config{}, err
	}
	if cfg.HeatmapResolution, err = getInt("HEATMAP_RESOLUTION", 8); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that would otherwise only fail on first use.
func (c Config) Validate() error {
	switch c.AIProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}

	switch c.LocationSource {
	case LocationSourceClient, LocationSourceGPS, LocationSourceNone:
	case LocationSourceMaps:
		if c.MapsAPIKey == "" {
			return fmt.Errorf("LOCATION_SOURCE=maps requires MAPS_CREDENTIALS")
		}
	default:
		return fmt.Errorf("unknown LOCATION_SOURCE %q", c.LocationSource)
	}

	// Firebase session cookies must live between 5 minutes and 14 days.
	if c.SessionTTL < 5*time.Minute || c.SessionTTL > 14*24*time.Hour {
		return fmt.Errorf("SESSION_TTL must be between 5m and 336h, got %s", c.SessionTTL)
	}
	if c.LocationTimeout <= 0 {
		return fmt.Errorf("LOCATION_TIMEOUT must be positive, got %s", c.LocationTimeout)
	}
	if c.HeatmapResolution < 0 || c.HeatmapResolution > 15 {
		return fmt.Errorf("HEATMAP_RESOLUTION must be between 0 and 15, got %d", c.HeatmapResolution)
	}
	return nil
}

// SecureCookies reports whether the client is served over https.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.ClientURL, "https://")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
