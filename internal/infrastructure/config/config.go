package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// UpstreamBaseURL is the marketplace backend the gateway proxies
	// authentication and seller status calls to.
	UpstreamBaseURL string `env:"UPSTREAM_BASE_URL, default=http://localhost:9000"`

	// CredBackend selects the credential store: redis, mongo, or memory.
	CredBackend string `env:"CRED_BACKEND, default=redis"`

	// SessionTTL bounds both the gateway session token and the persisted
	// credential lifetime.
	SessionTTL time.Duration `env:"SESSION_TTL, default=24h"`

	// PollInterval is the seller onboarding status poll cadence.
	PollInterval time.Duration `env:"STATUS_POLL_INTERVAL, default=10s"`

	// ApprovalNoticeDelay is the user-visible pause between approval
	// detection and the dashboard switching to product management.
	ApprovalNoticeDelay time.Duration `env:"APPROVAL_NOTICE_DELAY, default=2s"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=session_gateway"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
