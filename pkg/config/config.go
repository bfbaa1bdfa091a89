package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds client configuration loaded from the environment. Explicit
// construction in code is equally valid; Load is a convenience for examples
// and deployments that configure through env vars.
type Config struct {
	ClientID     string
	ClientSecret string
	ServerToken  string

	// Sandbox selects the sandbox API; production must be opted into.
	Sandbox bool

	// Simulate, when positive, enables the sandbox simulation driver with
	// this delay between status stages.
	Simulate time.Duration

	// PollInterval is the base delivery status poll period.
	PollInterval time.Duration

	// Extrapolate enables courier motion extrapolation between polls.
	Extrapolate bool

	Debug bool
}

// Load loads client configuration from environment variables, reading a .env
// file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ClientID:     getEnv("SWIFTRUSH_CLIENT_ID", ""),
		ClientSecret: getEnv("SWIFTRUSH_CLIENT_SECRET", ""),
		ServerToken:  getEnv("SWIFTRUSH_SERVER_TOKEN", ""),
		Sandbox:      getEnvAsBool("SWIFTRUSH_SANDBOX", true),
		Simulate:     time.Duration(getEnvAsInt("SWIFTRUSH_SIMULATE_MS", 0)) * time.Millisecond,
		PollInterval: time.Duration(getEnvAsInt("SWIFTRUSH_POLL_INTERVAL_SECS", 15)) * time.Second,
		Extrapolate:  getEnvAsBool("SWIFTRUSH_EXTRAPOLATE", false),
		Debug:        getEnvAsBool("SWIFTRUSH_DEBUG", false),
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("SWIFTRUSH_CLIENT_ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("SWIFTRUSH_CLIENT_SECRET is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
