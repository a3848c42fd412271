package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort string
	JWTSecret  string
	Session    SessionConfig
	UserCache  UserCacheConfig
	Postgres   PostgresConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Client     ClientConfig
}

type SessionConfig struct {
	TTL            time.Duration
	CookieName     string
	CookieSecure   bool
	ResolveTimeout time.Duration
}

type UserCacheConfig struct {
	TTL time.Duration
}

type PostgresConfig struct {
	Enabled           bool
	DSN               string
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type MongoConfig struct {
	Enabled        bool
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

// ClientConfig is read by the command line scripts that talk to a running server.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func LoadConfig() (*Config, error) {
	port := envOrDefault("PORT", "8080")
	jwtSecret := envOrDefault("JWT_SECRET", "dev-secret")

	pgPort, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))
	maxConns := parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8)
	minConns := parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1)
	redisDB, _ := strconv.Atoi(envOrDefault("REDIS_DB", "0"))

	logging := LoggingConfig{
		Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
		Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
		EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
		ServiceName:  envOrDefault("SERVICE_NAME", "lrblog-server"),
	}

	cfg := &Config{
		ServerPort: port,
		JWTSecret:  jwtSecret,
		Session: SessionConfig{
			TTL:            parseDuration(envOrDefault("SESSION_TTL", "24h"), 24*time.Hour),
			CookieName:     envOrDefault("SESSION_COOKIE", "lrblog_session"),
			CookieSecure:   parseBool(envOrDefault("SESSION_COOKIE_SECURE", "false"), false),
			ResolveTimeout: parseDuration(envOrDefault("SESSION_RESOLVE_TIMEOUT", "1500ms"), 1500*time.Millisecond),
		},
		UserCache: UserCacheConfig{
			TTL: parseDuration(envOrDefault("USER_CACHE_TTL", "30s"), 30*time.Second),
		},
		Postgres: PostgresConfig{
			Enabled:           parseBool(envOrDefault("POSTGRES_ENABLED", "false"), false),
			DSN:               os.Getenv("POSTGRES_DSN"),
			Host:              envOrDefault("POSTGRES_HOST", "localhost"),
			Port:              pgPort,
			User:              envOrDefault("POSTGRES_USER", "postgres"),
			Password:          envOrDefault("POSTGRES_PASSWORD", "postgres"),
			Database:          envOrDefault("POSTGRES_DB", "lrblog"),
			MaxConns:          maxConns,
			MinConns:          minConns,
			MaxConnLifetime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
			MaxConnIdleTime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
			HealthCheckPeriod: parseDuration(envOrDefault("POSTGRES_HEALTH_CHECK_PERIOD", "1m"), time.Minute),
			ConnectTimeout:    parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Mongo: MongoConfig{
			Enabled:        parseBool(envOrDefault("MONGO_ENABLED", "true"), true),
			URI:            envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database:       envOrDefault("MONGO_DATABASE", "lrblog"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logging: logging,
		Client: ClientConfig{
			BaseURL: strings.TrimRight(envOrDefault("API_BASE_URL", "http://localhost:"+port), "/"),
			Token:   strings.TrimSpace(os.Getenv("API_TOKEN")),
			Timeout: parseDuration(envOrDefault("API_TIMEOUT", "10s"), 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	missing := make([]string, 0, 2)

	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Mongo.Enabled && strings.TrimSpace(c.Mongo.URI) == "" {
		missing = append(missing, "MONGO_URI")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (c PostgresConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
