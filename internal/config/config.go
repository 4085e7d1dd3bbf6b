// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         int    `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME"`
	SSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
}

// DSN builds the lib/pq connection URL. Credentials and the database name
// are escaped, so passwords may contain URL delimiters.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig configures the scope cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	ScopeTTL time.Duration `env:"SCOPE_CACHE_TTL" envDefault:"30s"`
}

// Config is the process configuration shared by server, worker and seeder.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	AMQPURL         string        `env:"AMQP_URL"`
	AssignmentQueue string        `env:"ASSIGNMENT_QUEUE" envDefault:"assignment_personalize"`
	ResolveTimeout  time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`

	Database DatabaseConfig
	Redis    RedisConfig
}

// Load reads an optional .env file and then parses the environment.
// The returned bool reports whether a .env file was found.
func Load(files ...string) (*Config, bool, error) {
	loaded := godotenv.Load(files...) == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, loaded, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, loaded, nil
}
