package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Suggest  SuggestConfig
	Jobs     JobsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	ReadRetries    int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	Issuer                 string
	Audience               string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLHours   int
	ClockSkewSeconds       int
	BcryptCost             int
	MaxFailedLogins        int
	FailedLoginWindowMins  int
	SessionPurgeGraceHours int
}

// SLAConfig holds fallback overdue thresholds, in hours, per priority.
type SLAConfig struct {
	LowHours      int
	NormalHours   int
	HighHours     int
	UrgentHours   int
	PolicyCacheSz int

	// PolicyCacheTTLSeconds bounds how long a cached department is trusted.
	PolicyCacheTTLSeconds int
}

// SuggestConfig points at the triage suggestion service. An empty URL disables it.
type SuggestConfig struct {
	URL            string
	APIKey         string
	TimeoutSeconds int
}

// JobsConfig schedules background jobs using cron expressions.
type JobsConfig struct {
	SessionPurgeSpec string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
			ReadRetries:    getEnvAsInt("POSTGRES_READ_RETRIES", 3),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                 getEnv("AUTH_JWT_ISSUER", "helpdesk"),
			Audience:               getEnv("AUTH_JWT_AUDIENCE", "helpdesk-api"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLHours:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 14*24),
			ClockSkewSeconds:       getEnvAsInt("AUTH_CLOCK_SKEW_SECONDS", 5),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MaxFailedLogins:        getEnvAsInt("AUTH_MAX_FAILED_LOGINS", 5),
			FailedLoginWindowMins:  getEnvAsInt("AUTH_FAILED_LOGIN_WINDOW_MINUTES", 15),
			SessionPurgeGraceHours: getEnvAsInt("AUTH_SESSION_PURGE_GRACE_HOURS", 24),
		},
		SLA: SLAConfig{
			LowHours:      getEnvAsInt("SLA_LOW_HOURS", 72),
			NormalHours:   getEnvAsInt("SLA_NORMAL_HOURS", 48),
			HighHours:     getEnvAsInt("SLA_HIGH_HOURS", 24),
			UrgentHours:   getEnvAsInt("SLA_URGENT_HOURS", 8),
			PolicyCacheSz: getEnvAsInt("SLA_POLICY_CACHE_SIZE", 256),

			PolicyCacheTTLSeconds: getEnvAsInt("SLA_POLICY_CACHE_TTL_SECONDS", 60),
		},
		Suggest: SuggestConfig{
			URL:            getEnv("SUGGEST_URL", ""),
			APIKey:         os.Getenv("SUGGEST_API_KEY"),
			TimeoutSeconds: getEnvAsInt("SUGGEST_TIMEOUT_SECONDS", 10),
		},
		Jobs: JobsConfig{
			SessionPurgeSpec: getEnv("JOBS_SESSION_PURGE_SPEC", "@hourly"),
		},
	}

	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// ClockSkew returns the leeway applied when validating token times.
func (a AuthConfig) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// Hours returns the fallback thresholds keyed by priority.
func (s SLAConfig) Hours() map[domain.TicketPriority]int {
	return map[domain.TicketPriority]int{
		domain.TicketPriorityLow:    s.LowHours,
		domain.TicketPriorityNormal: s.NormalHours,
		domain.TicketPriorityHigh:   s.HighHours,
		domain.TicketPriorityUrgent: s.UrgentHours,
	}
}

// CacheTTL returns how long department policies stay cached.
func (s SLAConfig) CacheTTL() time.Duration {
	if s.PolicyCacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.PolicyCacheTTLSeconds) * time.Second
}

// Timeout returns the per-call timeout for the suggestion service.
func (s SuggestConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
