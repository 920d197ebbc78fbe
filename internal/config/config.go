package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	DashboardCacheTTL      time.Duration
	NotificationChannel    string
	SSEKeepAlive           time.Duration
	GradingRateMax         int
	GradingRateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LUMEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LumenClass API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "lumenclass/submissions")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("notification.channel", "lumenclass")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("grading.rate_max", 60)
	v.SetDefault("grading.rate_window", "1m")

	ttl, err := time.ParseDuration(v.GetString("dashboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("sse.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sse keepalive: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("grading.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading rate window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		DashboardCacheTTL:      ttl,
		NotificationChannel:    v.GetString("notification.channel"),
		SSEKeepAlive:           keepAlive,
		GradingRateMax:         v.GetInt("grading.rate_max"),
		GradingRateWindow:      rateWindow,
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	return cfg, nil
}
