package config

import (
	"fmt"
	"time"

	"github.com/atdata/ishare/pkg/envconf"
	"github.com/joho/godotenv"
)

// ClientConfig configures cmd/ishare. The base URL default matches the
// backend's local development address.
type ClientConfig struct {
	BaseURL     string        `env:"ISHARE_API_URL" envdef:"http://localhost:3000/api/v1"`
	APIKey      string        `env:"ISHARE_API_KEY" envdef:""`
	Timeout     time.Duration `env:"ISHARE_TIMEOUT" envdef:"15s"`
	SessionFile string        `env:"ISHARE_SESSION_FILE" envdef:""`
}

// StubConfig configures cmd/walletstub.
type StubConfig struct {
	Port            uint16        `env:"STUB_PORT" envdef:"3000"`
	JWTSecret       string        `env:"STUB_JWT_SECRET" envdef:"dev-only-secret"`
	TokenTTL        time.Duration `env:"STUB_TOKEN_TTL" envdef:"24h"`
	ShutdownTimeout time.Duration `env:"STUB_SHUTDOWN_TIMEOUT" envdef:"10s"`
	LogLevel        int           `env:"STUB_LOG_LEVEL" envdef:"0"`
}

// Load reads .env (when present) and then the process environment into dst.
// Explicit environment variables always win over .env values.
func Load(dst any) error {
	_ = godotenv.Load()

	err := envconf.Load(dst)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	return nil
}
