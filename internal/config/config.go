package config

import (
	"errors"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Database    Database
	Store       Store

	Doku  Doku  `envPrefix:"DOKU_"`
	Auth  Auth  `envPrefix:"AUTH_"`
	Redis Redis `envPrefix:"REDIS_"`
}

type Doku struct {
	BaseApiURL   string        `env:"BASE_API_URL" envDefault:"https://api-sandbox.doku.com"`
	ClientID     string        `env:"CLIENT_ID"`
	SecretKey    string        `env:"SECRET_KEY"`
	CheckoutPath string        `env:"CHECKOUT_PATH" envDefault:"/checkout/v1/payment"`
	NotifyPath   string        `env:"NOTIFY_PATH" envDefault:"/api/doku/notify"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Redis struct {
	Addr        string `env:"ADDR"`
	Password    string `env:"PASSWORD"`
	DB          int    `env:"DB" envDefault:"0"`
	AuditStream string `env:"AUDIT_STREAM" envDefault:"store:audit"`
}

type Database struct {
	Driver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	URL    string `env:"DATABASE_URL" envDefault:"store.db"`
}

type Store struct {
	InvoicePrefix    string        `env:"INVOICE_PREFIX" envDefault:"TMP"`
	Currency         string        `env:"CURRENCY" envDefault:"IDR"`
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"15s"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Doku.ClientID == "" {
		errs = append(errs, errors.New("DOKU_CLIENT_ID is required"))
	}
	if c.Doku.SecretKey == "" {
		errs = append(errs, errors.New("DOKU_SECRET_KEY is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, errors.New("DATABASE_DRIVER must be sqlite or mysql"))
	}
	return errors.Join(errs...)
}
