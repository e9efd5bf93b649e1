package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the regional Evaluagent endpoint used when EVALUAGENT_API_URL is unset.
const DefaultAPIURL = "https://api.evaluagent.com/v1"

// Config contains runtime configuration required by the relay.
// It is built once at process start and passed down explicitly.
type Config struct {
	AccessKeyID string
	SecretKey   string
	APIURL      string

	Port        string
	Environment string
	LogLevel    string

	HTTPTimeout    time.Duration // per outbound call
	ProcessTimeout time.Duration // whole pipeline for one delivery
	RetryMax       uint64        // extra attempts for replayable outbound calls
}

// Load reads configuration from environment variables.
// EVALUAGENT_ACCESS_KEY_ID and EVALUAGENT_SECRET_KEY are required.
func Load() (Config, error) {
	cfg := Config{
		AccessKeyID: strings.TrimSpace(os.Getenv("EVALUAGENT_ACCESS_KEY_ID")),
		SecretKey:   os.Getenv("EVALUAGENT_SECRET_KEY"),
		APIURL:      strings.TrimRight(envOr("EVALUAGENT_API_URL", DefaultAPIURL), "/"),
		Port:        envOr("PORT", "8080"),
		Environment: envOr("ENVIRONMENT", "local"),
		LogLevel:    strings.ToLower(envOr("LOG_LEVEL", "info")),
	}

	if cfg.AccessKeyID == "" {
		return Config{}, fmt.Errorf("EVALUAGENT_ACCESS_KEY_ID required")
	}
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("EVALUAGENT_SECRET_KEY required")
	}

	var err error
	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 2*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ProcessTimeout, err = durationEnv("PROCESS_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(os.Getenv("RETRY_MAX")); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("RETRY_MAX must be a non-negative integer: %w", err)
		}
		cfg.RetryMax = n
	}

	return cfg, nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 2m: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", k)
	}
	return d, nil
}
