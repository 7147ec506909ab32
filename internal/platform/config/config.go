package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile       = ".env"
	defaultPort          = "5003"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultIdleTimeout   = 120 * time.Second
	defaultMongoDatabase = "fotomart"
	defaultMongoTimeout  = 10 * time.Second
	defaultUploadDir     = "uploads"
	defaultSessionName   = "fotomart_admin"
	defaultSessionMaxAge = 12 * time.Hour
	defaultAdminUsername = "admin"
	defaultEnvironment   = "local"
	defaultCurrency      = "usd"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Storage  StorageConfig
	PSP      PSPConfig
	Mail     MailConfig
	Admin    AdminConfig
	Session  SessionConfig
	Security SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// MongoConfig stores database parameters.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// StorageConfig controls product image storage.
type StorageConfig struct {
	UploadDir     string
	PublicBaseURL string
}

// PSPConfig collects payment provider settings.
type PSPConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
}

// MailConfig configures the transactional mailer.
type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// AdminConfig holds the console credentials. Password may be a bcrypt hash
// (preferred) or a plain value for local development.
type AdminConfig struct {
	Username string
	Password string
}

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// SecurityConfig groups deployment environment settings.
type SecurityConfig struct {
	Environment string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Mongo: MongoConfig{
			URI:            stringWithDefault(lookup, "API_MONGO_URI", ""),
			Database:       stringWithDefault(lookup, "API_MONGO_DATABASE", defaultMongoDatabase),
			ConnectTimeout: durationWithDefault(lookup, "API_MONGO_CONNECT_TIMEOUT", defaultMongoTimeout),
		},
		Storage: StorageConfig{
			UploadDir:     stringWithDefault(lookup, "API_STORAGE_UPLOAD_DIR", defaultUploadDir),
			PublicBaseURL: stringWithDefault(lookup, "API_STORAGE_PUBLIC_BASE_URL", ""),
		},
		PSP: PSPConfig{
			StripeSecretKey:      stringWithDefault(lookup, "API_PSP_STRIPE_SECRET_KEY", ""),
			StripePublishableKey: stringWithDefault(lookup, "API_PSP_STRIPE_PUBLISHABLE_KEY", ""),
			Currency:             strings.ToLower(stringWithDefault(lookup, "API_PSP_CURRENCY", defaultCurrency)),
		},
		Mail: MailConfig{
			SendGridAPIKey: stringWithDefault(lookup, "API_MAIL_SENDGRID_API_KEY", ""),
			FromAddress:    stringWithDefault(lookup, "API_MAIL_FROM_ADDRESS", ""),
			FromName:       stringWithDefault(lookup, "API_MAIL_FROM_NAME", "Fotomart"),
		},
		Admin: AdminConfig{
			Username: stringWithDefault(lookup, "API_ADMIN_USERNAME", defaultAdminUsername),
			Password: stringWithDefault(lookup, "API_ADMIN_PASSWORD", ""),
		},
		Session: SessionConfig{
			Secret:     stringWithDefault(lookup, "API_SESSION_SECRET", ""),
			CookieName: stringWithDefault(lookup, "API_SESSION_COOKIE_NAME", defaultSessionName),
			MaxAge:     durationWithDefault(lookup, "API_SESSION_MAX_AGE", defaultSessionMaxAge),
			Secure:     boolWithDefault(lookup, "API_SESSION_SECURE", false),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultEnvironment)),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Mongo.URI) == "" {
		missing = append(missing, "Mongo.URI")
	}
	if strings.TrimSpace(cfg.Mongo.Database) == "" {
		missing = append(missing, "Mongo.Database")
	}
	if strings.TrimSpace(cfg.PSP.StripeSecretKey) == "" {
		missing = append(missing, "PSP.StripeSecretKey")
	}
	if strings.TrimSpace(cfg.PSP.StripePublishableKey) == "" {
		missing = append(missing, "PSP.StripePublishableKey")
	}
	if strings.TrimSpace(cfg.Admin.Password) == "" {
		missing = append(missing, "Admin.Password")
	}
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		missing = append(missing, "Session.Secret")
	}
	if cfg.Session.MaxAge <= 0 {
		missing = append(missing, "Session.MaxAge")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
