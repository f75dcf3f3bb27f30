// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	OpenAI      OpenAIConfig
	Instagram   InstagramConfig
	Trends      TrendsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	TrendsTopic    string
	AnalysisTopic  string
}

// OpenAIConfig holds model API configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float64
	MaxAttempts    int
	RetryBaseWait  time.Duration
	RequestTimeout time.Duration
}

// InstagramConfig holds profile source configuration
type InstagramConfig struct {
	BaseURL        string
	AppID          string
	UserAgent      string
	RequestTimeout time.Duration
}

// TrendsConfig holds trend source and pipeline configuration
type TrendsConfig struct {
	// Source selects the trend source variant: "static" or "twitter".
	Source             string
	StaticDataPath     string
	TwitterBearerToken string
	SeedHashtags       []string
	RefreshInterval    time.Duration
	MinRefreshSpacing  time.Duration
	FetchLimit         int
	TopMatches         int
	FreshnessWindow    time.Duration
	MaxPostsPerProfile int
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "instatrends"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			TrendsTopic:    getEnv("NATS_TRENDS_TOPIC", "trends.refreshed"),
			AnalysisTopic:  getEnv("NATS_ANALYSIS_TOPIC", "analysis.completed"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 1000),
			Temperature:    getEnvAsFloat("OPENAI_TEMPERATURE", 0.1),
			MaxAttempts:    getEnvAsInt("OPENAI_MAX_ATTEMPTS", 3),
			RetryBaseWait:  getEnvAsDuration("OPENAI_RETRY_BASE_WAIT", 2*time.Second),
			RequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 30*time.Second),
		},
		Instagram: InstagramConfig{
			BaseURL:        getEnv("INSTAGRAM_BASE_URL", "https://www.instagram.com"),
			AppID:          getEnv("INSTAGRAM_APP_ID", "936619743392459"),
			UserAgent:      getEnv("INSTAGRAM_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"),
			RequestTimeout: getEnvAsDuration("INSTAGRAM_REQUEST_TIMEOUT", 15*time.Second),
		},
		Trends: TrendsConfig{
			Source:             getEnv("TRENDS_SOURCE", "static"),
			StaticDataPath:     getEnv("TRENDS_STATIC_PATH", ""),
			TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			SeedHashtags:       getEnvAsSlice("TRENDS_SEED_HASHTAGS", []string{"#fitness", "#foodie", "#travel", "#technology", "#fashion"}),
			RefreshInterval:    getEnvAsDuration("TRENDS_REFRESH_INTERVAL", 30*time.Minute),
			MinRefreshSpacing:  getEnvAsDuration("TRENDS_MIN_REFRESH_SPACING", 1*time.Hour),
			FetchLimit:         getEnvAsInt("TRENDS_FETCH_LIMIT", 15),
			TopMatches:         getEnvAsInt("TRENDS_TOP_MATCHES", 5),
			FreshnessWindow:    getEnvAsDuration("TRENDS_FRESHNESS_WINDOW", 1*time.Hour),
			MaxPostsPerProfile: getEnvAsInt("TRENDS_MAX_POSTS_PER_PROFILE", 12),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.OpenAI.APIKey == "" && config.Environment != "development" {
		return fmt.Errorf("OPENAI_API_KEY must be set in non-development environments")
	}

	switch config.Trends.Source {
	case "static":
	case "twitter":
		if config.Trends.TwitterBearerToken == "" {
			return fmt.Errorf("TWITTER_BEARER_TOKEN must be set when TRENDS_SOURCE=twitter")
		}
	default:
		return fmt.Errorf("unsupported trend source: %s", config.Trends.Source)
	}

	if config.Trends.TopMatches <= 0 {
		return fmt.Errorf("TRENDS_TOP_MATCHES must be positive")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
