package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	JWTSecret         string
	JWTExpiryDuration time.Duration

	// AuthRateLimit is a limiter format string, e.g. "5-M" for five
	// requests per minute per IP on the auth endpoints.
	AuthRateLimit string

	// MirrorRetryInterval is how often the background worker drains mirror
	// intents stranded by crashes or transient failures.
	MirrorRetryInterval time.Duration

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Environment variables win over .env values.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("AUTH_RATE_LIMIT", "5-M")
	viper.SetDefault("MIRROR_RETRY_INTERVAL", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiry, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiry = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiry)
	}
	cfg.JWTExpiryDuration = jwtExpiry

	cfg.AuthRateLimit = viper.GetString("AUTH_RATE_LIMIT")

	retryStr := viper.GetString("MIRROR_RETRY_INTERVAL")
	retry, err := time.ParseDuration(retryStr)
	if err != nil {
		retry = 30 * time.Second
		log.Printf("Warning: Invalid value for MIRROR_RETRY_INTERVAL ('%s'). Defaulting to %s.\n", retryStr, retry)
	}
	cfg.MirrorRetryInterval = retry

	cfg.CORSAllowedOrigins = viper.GetStringSlice("CORS_ALLOWED_ORIGINS")
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	return cfg, nil
}
