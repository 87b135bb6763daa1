package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const EnvProduction = "production"

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Auth   AuthConfig
	Seed   SeedConfig
	Notify NotifyConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"JWT_TTL,                default=168h"`
	RefetchUser     bool          `env:"AUTH_REFETCH_USER,      default=true"`
	MockEnabled     bool          `env:"AUTH_MOCK_ENABLED,      default=false"`
	MockDefaultRole string        `env:"AUTH_MOCK_DEFAULT_ROLE, default=general_director"`
	RateLimitRPM    int           `env:"AUTH_RATE_LIMIT_RPM,    default=30"`
	MaxFailures     int64         `env:"LOGIN_MAX_FAILURES,     default=5"`
	Lockout         time.Duration `env:"LOGIN_LOCKOUT,          default=15m"`
}

type SeedConfig struct {
	Username string `env:"SEED_ADMIN_USERNAME"`
	Password string `env:"SEED_ADMIN_PASSWORD"`
	Email    string `env:"SEED_ADMIN_EMAIL"`
}

type NotifyConfig struct {
	Workers int `env:"NOTIFY_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=civil360"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig. A
// .env file in the working directory is applied first when present; variables
// already set in the environment win.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom is Load with an explicit source, used by tests.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Port == "" {
		return errors.New("config: PORT cannot be empty")
	}
	return nil
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), EnvProduction)
}

// MockAuthActive reports whether the development identity path may be
// enabled. The flag is ignored in production.
func (c *Config) MockAuthActive() bool {
	return c.Auth.MockEnabled && !c.IsProduction()
}
