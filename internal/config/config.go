package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ecarlucci/taskmate/internal/directory"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// BackendMode selects where task data lives: "local" serves the
	// in-process store, "remote" proxies to another taskmate-compatible
	// server at BackendBaseURL.
	BackendMode    string
	BackendBaseURL string
	BackendTimeout time.Duration

	DatabaseURL string

	// DirectoryUsers seeds the local backend's user roster:
	// "id:name:email" entries separated by commas. Empty means an open
	// roster where any bearer token is accepted as a user id.
	DirectoryUsers []directory.User
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "taskmate"),
		AllowAnyOrigin:           false,
		BackendMode:              strings.ToLower(envOrDefault("BACKEND_MODE", "local")),
		BackendBaseURL:           trimmedEnv("BACKEND_BASE_URL"),
		DatabaseURL:              trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
		BackendTimeout:           15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BackendTimeout, err = durationFromEnv("BACKEND_TIMEOUT", cfg.BackendTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.DirectoryUsers, err = usersFromEnv("DIRECTORY_USERS")
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	switch cfg.BackendMode {
	case "local":
	case "remote":
		if cfg.BackendBaseURL == "" {
			return Config{}, fmt.Errorf("BACKEND_MODE=remote requires BACKEND_BASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("invalid BACKEND_MODE: %q (expected local|remote)", cfg.BackendMode)
	}

	return cfg, nil
}

func usersFromEnv(key string) ([]directory.User, error) {
	raw := trimmedEnv(key)
	if raw == "" {
		return nil, nil
	}
	var users []directory.User
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%s entry %q must be id:name:email", key, entry)
		}
		users = append(users, directory.User{
			ID:    strings.TrimSpace(parts[0]),
			Name:  strings.TrimSpace(parts[1]),
			Email: strings.TrimSpace(parts[2]),
		})
	}
	return users, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid bool %q", key, v)
	}
}
