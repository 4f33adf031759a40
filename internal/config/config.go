package config

import (
	"fmt"
	"os"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string

	// RailwayBinary is the path to the Railway CLI executable driven by the
	// command executor.
	RailwayBinary string
	// RailwayToken is the decrypted platform credential. It is handed to
	// spawned CLI processes as their single credential env var and never
	// persisted.
	RailwayToken string
	// RailwayAPIURL is the endpoint for operations the CLI cannot perform
	// (redeploy-by-id, domain management).
	RailwayAPIURL string

	// SandboxHome is the HOME directory given to spawned CLI processes.
	SandboxHome string
	// SandboxPath is the PATH given to spawned CLI processes.
	SandboxPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", "raildeploy"),
		RailwayBinary:  getEnv("RAILWAY_BINARY", "railway"),
		RailwayToken:   getEnv("RAILWAY_TOKEN", ""),
		RailwayAPIURL:  getEnv("RAILWAY_API_URL", "https://backboard.railway.app/graphql/v2"),
		SandboxHome:    getEnv("SANDBOX_HOME", "/tmp/raildeploy-sandbox"),
		SandboxPath:    getEnv("SANDBOX_PATH", "/usr/local/bin:/usr/bin:/bin"),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given component are set.
func (c *Config) Validate(component string) error {
	switch component {
	case "api":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", component)
		}
		if c.RailwayToken == "" {
			return fmt.Errorf("RAILWAY_TOKEN is required for %s", component)
		}
	case "ctl":
		// railctl talks to the API only; nothing beyond defaults required.
	default:
		return fmt.Errorf("unknown component: %s", component)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
