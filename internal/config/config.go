package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eventboard/server/internal/validation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Bootstrap   BootstrapConfig `yaml:"bootstrap"`
	Bot         BotConfig       `yaml:"bot"`
	Images      ImagesConfig    `yaml:"images"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicURL is the externally reachable base URL used to build image links.
	PublicURL string `yaml:"public_url"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTExpiry   time.Duration `yaml:"jwt_expiry"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	DefaultRole string        `yaml:"default_role"`
}

type CORSConfig struct {
	AllowAllOrigins bool     `yaml:"allow_all_origins"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute"`
	// LoginBurst is the login/signup allowance per client; one request is
	// restored every three minutes.
	LoginBurst        int      `yaml:"login_burst"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

// BootstrapConfig describes an organizer account created at startup when absent.
type BootstrapConfig struct {
	OrganizerEmail    string `yaml:"organizer_email"`
	OrganizerPassword string `yaml:"organizer_password"`
}

type BotConfig struct {
	Token     string        `yaml:"token"`
	WebURL    string        `yaml:"web_url"`
	EventsURL string        `yaml:"events_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Debug     bool          `yaml:"debug"`
}

type ImagesConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

const defaultFrontendOrigin = "https://eventapp-zeta.vercel.app"

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      5000,
			PublicURL: "http://localhost:5000",
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
		},
		Auth: AuthConfig{
			JWTExpiry:   24 * time.Hour,
			JWTIssuer:   "eventboard",
			DefaultRole: "attendee",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{defaultFrontendOrigin},
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: 120,
			LoginBurst:      5,
		},
		Bot: BotConfig{
			WebURL:  defaultFrontendOrigin + "/",
			Timeout: 60 * time.Second,
		},
		Images: ImagesConfig{
			Dir: "images",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			ServiceName:  "eventboard",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Environment: "development",
	}
}

// Load builds the configuration from defaults and environment variables.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile overlays an optional YAML file on the defaults, then applies
// environment variables on top. Environment always wins.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.PublicURL = strings.TrimRight(getEnv("SERVER_PUBLIC_URL", cfg.Server.PublicURL), "/")

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	if cfg.Database.URL == "" {
		cfg.Database.URL = databaseURLFromParts()
	}
	cfg.Database.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", cfg.Database.MaxConnections)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", getEnv("SECRET_KEY", cfg.Auth.JWTSecret))
	if hours := getEnvInt("JWT_EXPIRY_HOURS", 0); hours > 0 {
		cfg.Auth.JWTExpiry = time.Duration(hours) * time.Hour
	}
	cfg.Auth.DefaultRole = getEnv("SIGNUP_DEFAULT_ROLE", cfg.Auth.DefaultRole)

	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}
	cfg.CORS.AllowAllOrigins = cfg.Environment == "development" || cfg.Environment == "test"

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.LoginBurst = getEnvInt("RATE_LIMIT_LOGIN_BURST", cfg.RateLimit.LoginBurst)
	if cidrs := getEnv("TRUSTED_PROXY_CIDRS", ""); cidrs != "" {
		cfg.RateLimit.TrustedProxyCIDRs = splitList(cidrs)
	}

	cfg.Bootstrap.OrganizerEmail = getEnv("ORGANIZER_EMAIL", cfg.Bootstrap.OrganizerEmail)
	cfg.Bootstrap.OrganizerPassword = getEnv("ORGANIZER_PASSWORD", cfg.Bootstrap.OrganizerPassword)

	cfg.Bot.Token = getEnv("BOT_TOKEN", cfg.Bot.Token)
	cfg.Bot.WebURL = getEnv("BOT_WEB_URL", cfg.Bot.WebURL)
	cfg.Bot.EventsURL = getEnv("BOT_EVENTS_URL", cfg.Bot.EventsURL)
	cfg.Bot.Debug = getEnvBool("BOT_DEBUG", cfg.Bot.Debug)

	cfg.Images.Dir = getEnv("IMAGES_DIR", cfg.Images.Dir)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL (or DB_HOST/DB_USER/DB_NAME) is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("SECRET_KEY or JWT_SECRET is required")
	}
	if err := validation.URL("SERVER_PUBLIC_URL", c.Server.PublicURL, false); err != nil {
		return err
	}
	if err := validation.URL("BOT_WEB_URL", c.Bot.WebURL, c.IsProduction()); err != nil {
		return err
	}
	if err := validation.URL("BOT_EVENTS_URL", c.Bot.EventsURL, false); err != nil {
		return err
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters in production")
		}
		if len(c.CORS.AllowedOrigins) == 0 {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	port := getEnv("DB_PORT", "5432")

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if password := os.Getenv("DB_PASSWORD"); password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
