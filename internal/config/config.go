package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	TokenStoreMemory   = "memory"
	TokenStoreFile     = "file"
	TokenStorePostgres = "postgres"
)

type Config struct {
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8000/api/v1/"`
	SiteURL     string        `env:"SITE_URL" envDefault:"http://localhost:5173"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	TokenStore  string `env:"TOKEN_STORE" envDefault:"file"`
	TokenFile   string `env:"TOKEN_FILE"`
	DatabaseURL string `env:"DATABASE_URL"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"5"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	PollMaxAttempts      int           `env:"POLL_MAX_ATTEMPTS" envDefault:"12"`
	IntegrationsCacheTTL time.Duration `env:"INTEGRATIONS_CACHE_TTL" envDefault:"5m"`
	SessionKeepAlive     time.Duration `env:"SESSION_KEEPALIVE" envDefault:"5m"`

	MockAPIPort      int           `env:"MOCK_API_PORT" envDefault:"8000"`
	MockJWTSecret    string        `env:"MOCK_JWT_SECRET" envDefault:"sandbox-secret"`
	MockAccessTTL    time.Duration `env:"MOCK_ACCESS_TTL" envDefault:"5m"`
	MockRefreshTTL   time.Duration `env:"MOCK_REFRESH_TTL" envDefault:"24h"`
	MockPendingPolls int           `env:"MOCK_PENDING_POLLS" envDefault:"3"`
	MockCreateRate   float64       `env:"MOCK_CREATE_RATE" envDefault:"1"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.TokenStore {
	case TokenStoreMemory, TokenStoreFile:
	case TokenStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TOKEN_STORE=%s", TokenStorePostgres)
		}
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.TokenStore)
	}
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}
	if c.PollMaxAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.SessionKeepAlive <= 0 {
		return fmt.Errorf("SESSION_KEEPALIVE must be positive")
	}
	return nil
}

// SignInURL is where an expired session sends the user.
func (c *Config) SignInURL() string {
	return strings.TrimSuffix(c.SiteURL, "/") + "/signin"
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".estate", "credentials.json")
	}
	return filepath.Join(home, ".estate", "credentials.json")
}
