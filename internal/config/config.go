package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/routine/internal/trigger"
)

// Config holds application configuration read from ROUTINE_* environment
// variables.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	PollInterval time.Duration
	Tolerance    time.Duration
	Voice        bool

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// APITokenHash is a bcrypt hash. When empty the API is unauthenticated.
	APITokenHash string
	CORSOrigins  []string
	// RateLimit is the number of API requests allowed per client per minute.
	RateLimit int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("ROUTINE_PORT", "8000"),
		DBPath:          getEnv("ROUTINE_DB_PATH", "routine.db"),
		LogLevel:        getEnv("ROUTINE_LOG_LEVEL", "info"),
		LogFormat:       getEnv("ROUTINE_LOG_FORMAT", "text"),
		VAPIDPublicKey:  getEnv("ROUTINE_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("ROUTINE_VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("ROUTINE_VAPID_SUBJECT", "mailto:noreply@localhost"),
		APITokenHash:    getEnv("ROUTINE_API_TOKEN_HASH", ""),
		CORSOrigins:     splitList(getEnv("ROUTINE_CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.PollInterval, err = getEnvDuration("ROUTINE_POLL_INTERVAL", trigger.DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.Tolerance, err = getEnvDuration("ROUTINE_TOLERANCE", trigger.DefaultTolerance); err != nil {
		return nil, err
	}
	if cfg.Voice, err = getEnvBool("ROUTINE_VOICE", true); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvInt("ROUTINE_RATE_LIMIT", 30); err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("ROUTINE_POLL_INTERVAL must be positive")
	}
	if cfg.Tolerance <= 0 {
		return nil, fmt.Errorf("ROUTINE_TOLERANCE must be positive")
	}
	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return nil, fmt.Errorf("ROUTINE_VAPID_PUBLIC_KEY and ROUTINE_VAPID_PRIVATE_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%s: invalid boolean %q", key, value)
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
