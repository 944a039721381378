// Package config holds the typed server configuration.
//
// Configuration is loaded with cleanenv: every field carries a yaml tag
// (for an optional config file named by CONFIG_PATH) and an env tag, with
// environment variables taking precedence. env-default keeps local
// development zero-setup — only JWT_SECRET has no safe default.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	// Env selects runtime behavior that must differ between environments.
	// In "development" the forgot-password endpoint discloses the raw
	// reset token in the response body; any other value keeps it
	// email-only.
	Env string `yaml:"env" env:"ENV" env-default:"development"`

	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Auth       `yaml:"auth"`
	SMTP       `yaml:"smtp"`
	GitHub     `yaml:"github"`
}

// HTTPServer holds the listener settings. There is deliberately no write
// timeout knob: the SSE stream keeps response writers open indefinitely,
// so the server never sets one.
type HTTPServer struct {
	Port            int           `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type Database struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"data/eventboard.db"`
}

type Auth struct {
	// JWTSecret signs session tokens. At least 32 random bytes in
	// production: JWT_SECRET=$(openssl rand -hex 32)
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// SMTP configures password-reset email delivery. When Host is empty the
// mailer is disabled and reset tokens are only reachable through the
// development-mode response.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
	FromName string `yaml:"from_name" env:"SMTP_FROM_NAME" env-default:"Event Board"`
}

// GitHub configures the optional OAuth sign-in. Routes are only registered
// when ClientID and ClientSecret are both set.
type GitHub struct {
	ClientID     string `yaml:"client_id" env:"GITHUB_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `yaml:"callback_url" env:"GITHUB_CALLBACK_URL"`
}

// Load reads configuration from the file named by CONFIG_PATH (if set)
// with environment-variable overrides, or from the environment alone.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}

	return &cfg, nil
}

// IsDevelopment reports whether the server runs with development shortcuts
// enabled.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SMTPEnabled reports whether reset emails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// GitHubEnabled reports whether OAuth sign-in routes should be registered.
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}
