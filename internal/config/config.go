package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const (
	// SquareEnvSandbox selects Square's sandbox environment and the
	// sandbox Nango provider config key.
	SquareEnvSandbox = "sandbox"
	// SquareEnvProduction selects the live Square environment.
	SquareEnvProduction = "production"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Nango    NangoConfig    `env:",prefix=NANGO_"`
	Square   SquareConfig   `env:",prefix=SQUARE_"`
	Agent    AgentConfig    `env:",prefix=AGENT_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=30s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=onboard"`
	Password string `env:"PASSWORD,default=onboard_password"`
	DBName   string `env:"DB,default=onboard_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=24h"`
}

// NangoConfig configures the Nango OAuth broker. The provider config key
// actually used depends on the Square environment.
type NangoConfig struct {
	SecretKey           string `env:"SECRET_KEY,required"`
	BaseURL             string `env:"BASE_URL,default=https://api.nango.dev"`
	WebhookSecret       string `env:"WEBHOOK_SECRET,required"`
	SandboxConfigKey    string `env:"SANDBOX_CONFIG_KEY,default=square-sandbox"`
	ProductionConfigKey string `env:"PRODUCTION_CONFIG_KEY,default=square"`
}

type SquareConfig struct {
	Environment string `env:"ENVIRONMENT,default=sandbox"`
	// BaseURL overrides the environment-derived endpoint, used in tests.
	BaseURL             string `env:"BASE_URL,default="`
	DefaultTeamMemberID string `env:"DEFAULT_TEAM_MEMBER_ID,default="`
}

// AgentConfig configures the voice-agent tool webhook surface.
type AgentConfig struct {
	// Secret is the shared header value the agent platform presents on
	// every tool invocation.
	Secret      string   `env:"SECRET,required"`
	ToolTimeout Duration `env:"TOOL_TIMEOUT,default=10s"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=10"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	OTPExpiry         Duration `env:"OTP_EXPIRY,default=10m"`
	OTPLength         int      `env:"OTP_LENGTH,default=6"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization,X-Agent-Secret"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// ProviderConfigKey returns the Nango provider config key matching the
// configured Square environment.
func (c Config) ProviderConfigKey() string {
	if c.Square.Environment == SquareEnvProduction {
		return c.Nango.ProductionConfigKey
	}
	return c.Nango.SandboxConfigKey
}

// SquareBaseURL returns the Square API endpoint for the configured
// environment, honoring an explicit override.
func (c Config) SquareBaseURL() string {
	if c.Square.BaseURL != "" {
		return c.Square.BaseURL
	}
	if c.Square.Environment == SquareEnvProduction {
		return "https://connect.squareup.com"
	}
	return "https://connect.squareupsandbox.com"
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Square.Environment != SquareEnvSandbox && config.Square.Environment != SquareEnvProduction {
		return nil, fmt.Errorf("SQUARE_ENVIRONMENT must be %q or %q", SquareEnvSandbox, SquareEnvProduction)
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
