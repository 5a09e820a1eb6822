// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultTokenSecret = "your-secret-key"

// Config holds all application configuration
type Config struct {
	Environment string         `envconfig:"APP_ENV" default:"development"`
	Server      ServerConfig   `envconfig:"SERVER"`
	Database    DatabaseConfig `envconfig:"DB"`
	NATS        NATSConfig     `envconfig:"NATS"`
	Redis       RedisConfig    `envconfig:"REDIS"`
	Geo         GeoConfig      `envconfig:"GEO"`
	Schedule    ScheduleConfig `envconfig:"SCHEDULE"`
	Identity    IdentityConfig `envconfig:"IDENTITY"`
	Log         LogConfig      `envconfig:"LOG"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `split_words:"true" default:"0.0.0.0"`
	Port            int           `split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"10s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	CorsOrigins     []string      `split_words:"true" default:"*"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string        `split_words:"true" default:"localhost"`
	Port         int           `split_words:"true" default:"5432"`
	User         string        `split_words:"true" default:"postgres"`
	Password     string        `split_words:"true" default:"postgres"`
	Name         string        `split_words:"true" default:"stagemap"`
	MaxOpenConns int           `split_words:"true" default:"25"`
	MaxIdleConns int           `split_words:"true" default:"5"`
	MaxLifetime  time.Duration `split_words:"true" default:"5m"`
	SSLMode      string        `split_words:"true" default:"disable"`
}

// ConnString returns a pgx connection string including pool settings
func (d DatabaseConfig) ConnString() string {
	query := url.Values{}
	query.Set("sslmode", d.SSLMode)
	query.Set("pool_max_conns", strconv.Itoa(d.MaxOpenConns))
	query.Set("pool_min_conns", strconv.Itoa(d.MaxIdleConns))
	query.Set("pool_max_conn_lifetime", d.MaxLifetime.String())

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string        `split_words:"true" default:"nats://localhost:4222"`
	MaxReconnects  int           `split_words:"true" default:"10"`
	ReconnectWait  time.Duration `split_words:"true" default:"1s"`
	ConnectTimeout time.Duration `split_words:"true" default:"2s"`
	SubjectPrefix  string        `split_words:"true" default:"stagemap"`
}

// RedisConfig holds listing cache configuration
type RedisConfig struct {
	Enabled  bool          `split_words:"true" default:"true"`
	Host     string        `split_words:"true" default:"localhost"`
	Port     int           `split_words:"true" default:"6379"`
	Password string        `split_words:"true"`
	DB       int           `split_words:"true" default:"0"`
	ListTTL  time.Duration `split_words:"true" default:"30s"`
}

// Addr returns the redis address
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// GeoConfig holds proximity search configuration. Radii are kilometers.
type GeoConfig struct {
	DefaultRadius float64 `split_words:"true" default:"10"`
	MaxRadius     float64 `split_words:"true" default:"20000"`
}

// ScheduleConfig holds stage schedule configuration
type ScheduleConfig struct {
	DisplayTimezone string        `split_words:"true" default:"UTC"`
	RefreshInterval time.Duration `split_words:"true" default:"1m"`
	WriteRetries    int           `split_words:"true" default:"3"`
	RetryBackoff    time.Duration `split_words:"true" default:"25ms"`
	CalendarName    string        `split_words:"true" default:"stagemap"`
}

// Location loads the display timezone
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.DisplayTimezone)
}

// IdentityConfig holds identity service configuration
type IdentityConfig struct {
	TokenSecret string        `split_words:"true" default:"your-secret-key"`
	TokenExpiry time.Duration `split_words:"true" default:"24h"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `split_words:"true" default:"info"`
}

// Load reads an optional .env file, then binds environment variables
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("error reading environment: %w", err)
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Identity.TokenSecret == defaultTokenSecret && config.Environment != "development" {
		return fmt.Errorf("token secret must be set in non-development environments")
	}

	if _, err := config.Schedule.Location(); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", config.Schedule.DisplayTimezone, err)
	}

	if config.Geo.DefaultRadius <= 0 || config.Geo.DefaultRadius > config.Geo.MaxRadius {
		return fmt.Errorf("default radius %.2f must be positive and at most max radius %.2f",
			config.Geo.DefaultRadius, config.Geo.MaxRadius)
	}

	if config.Schedule.WriteRetries < 0 {
		return fmt.Errorf("schedule write retries must not be negative")
	}

	return nil
}
