package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bnpl-service/pkg/common"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

const EnvPrefix = "BNPL_"

var DefaultConfig = []byte(`
application: "bnpl-service"

logger:
  level: "info"

is_prod_mode: false

http:
  port: "8080"
  gin_mode: "release"

grpc:
  port: "50051"

database:
  driver: "mysql"
  dsn: ""
  host: "localhost"
  port: "3306"
  user: "root"
  password: ""
  name: "bnpl"
  log_level: "silent"
  max_open_conns: 25
  max_idle_conns: 5

redis:
  uri: "localhost:6379"
  password: ""

auth:
  jwt_secret: ""

stripe:
  webhook_secret: ""
  tolerance: "5m"
  currency: "sgd"

payout:
  revenue_window_months: 1

notification:
  webhook_url: ""

scheduler:
  reminder_spec: "0 9 * * *"
  health_spec: "@every 30s"

worker:
  concurrency: 10
`)

type Config struct {
	Application  string       `koanf:"application"`
	Logger       Logger       `koanf:"logger"`
	IsProdMode   bool         `koanf:"is_prod_mode"`
	HTTP         HTTP         `koanf:"http"`
	GRPC         GRPC         `koanf:"grpc"`
	Database     Database     `koanf:"database"`
	Redis        Redis        `koanf:"redis"`
	Auth         Auth         `koanf:"auth"`
	Stripe       Stripe       `koanf:"stripe"`
	Payout       Payout       `koanf:"payout"`
	Notification Notification `koanf:"notification"`
	Scheduler    Scheduler    `koanf:"scheduler"`
	Worker       Worker       `koanf:"worker"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type HTTP struct {
	Port    string `koanf:"port"`
	GinMode string `koanf:"gin_mode"`
}

type GRPC struct {
	Port string `koanf:"port"`
}

type Database struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	Host         string `koanf:"host"`
	Port         string `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	LogLevel     string `koanf:"log_level"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

type Redis struct {
	URI      string `koanf:"uri"`
	Password string `koanf:"password"`
}

type Auth struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type Stripe struct {
	WebhookSecret string        `koanf:"webhook_secret"`
	Tolerance     time.Duration `koanf:"tolerance"`
	Currency      string        `koanf:"currency"`
}

type Payout struct {
	RevenueWindowMonths int `koanf:"revenue_window_months"`
}

type Notification struct {
	WebhookURL string `koanf:"webhook_url"`
}

type Scheduler struct {
	ReminderSpec string `koanf:"reminder_spec"`
	HealthSpec   string `koanf:"health_spec"`
}

type Worker struct {
	Concurrency int `koanf:"concurrency"`
}

// Load layers the defaults, an optional YAML file, a .env file and BNPL_
// environment variables, in that order. Nested keys in env vars use "__",
// e.g. BNPL_DATABASE__DSN.
func Load(path string) (*Config, *koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return nil, nil, fmt.Errorf("loading default config: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}

	loadDotEnv()

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, k, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../.env")
	}
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := common.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		ve.Add("database.driver", "must be one of mysql, postgres, sqlite")
	}
	if c.Redis.URI == "" {
		ve.Add("redis.uri", "cannot be empty")
	}
	if c.IsProdMode && c.Auth.JWTSecret == "" {
		ve.Add("auth.jwt_secret", "cannot be empty in prod mode")
	}
	if len(c.Stripe.Currency) != 3 {
		ve.Add("stripe.currency", "must be a three-letter ISO currency code")
	}
	if c.Payout.RevenueWindowMonths < 1 {
		ve.Add("payout.revenue_window_months", "must be at least 1")
	}

	if err := ve.Err(); err != nil {
		return common.ValidationFailedErr(err)
	}
	return nil
}

// DatabaseDSN returns the configured DSN or builds one from the discrete fields.
func (d Database) DatabaseDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port)
	case "sqlite":
		return d.Name + ".db"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}
