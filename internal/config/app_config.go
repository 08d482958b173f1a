package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/shaharia-lab/restock-notifier/internal/notification"
	"github.com/shaharia-lab/restock-notifier/internal/registration"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// legacyTokenVars are older names for CONTENTFUL_MANAGEMENT_TOKEN, checked in order.
var legacyTokenVars = []string{
	"VERCEL_CONTENTFUL_ACCESS_TOKEN_MANAGEMENT_API",
	"CONTENTFUL_ACCESS_TOKEN_MANAGEMENT_API",
}

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 3000.
	Port int `envconfig:"PORT" default:"3000"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogDir enables a rotating system.log in this directory when set.
	LogDir string `envconfig:"LOG_DIR"`

	ContentfulSpaceID     string `envconfig:"CONTENTFUL_SPACE_ID" required:"true"`
	ContentfulEnvironment string `envconfig:"CONTENTFUL_ENVIRONMENT" default:"master"`
	ContentfulBaseURL     string `envconfig:"CONTENTFUL_BASE_URL" default:"https://api.contentful.com"`
	ContentfulContentType string `envconfig:"CONTENTFUL_CONTENT_TYPE" default:"emailRegistration"`
	ContentfulPageSize    int    `envconfig:"CONTENTFUL_PAGE_SIZE" default:"100"`
	ContentfulRetryMax    int    `envconfig:"CONTENTFUL_RETRY_MAX" default:"2"`

	// ContentfulManagementToken falls back to the legacy variable names when unset.
	ContentfulManagementToken string `envconfig:"CONTENTFUL_MANAGEMENT_TOKEN"`

	EmailUser string `envconfig:"EMAIL_USER" required:"true"`
	EmailPass string `envconfig:"EMAIL_PASS" required:"true"`
	// EmailFrom defaults to EmailUser.
	EmailFrom      string `envconfig:"EMAIL_FROM"`
	SMTPHost       string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// SendTimeout bounds a single SMTP dial-and-send.
	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"30s"`

	// MaxConcurrentSends bounds simultaneous deliveries per batch. Zero is unbounded.
	MaxConcurrentSends int `envconfig:"MAX_CONCURRENT_SENDS" default:"10"`

	// FallbackLanguage is used for registrations without a language and for
	// the legacy single-language product name.
	FallbackLanguage string `envconfig:"FALLBACK_LANGUAGE" default:"nl"`

	// ShopBaseURL prefixes the product link in every email.
	ShopBaseURL string `envconfig:"SHOP_BASE_URL" default:"https://yourwebsite.com"`

	// DatabasePath enables the SQLite delivery log when set.
	DatabasePath string `envconfig:"DATABASE_PATH"`

	// DeliveryLogRetention is how long delivery log rows are kept. Zero keeps them forever.
	DeliveryLogRetention time.Duration `envconfig:"DELIVERY_LOG_RETENTION" default:"720h"`

	// OTLPEndpoint enables trace export over OTLP/gRPC when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads AppConfig from environment variables using envconfig and
// validates it. Missing credentials are reported as an error.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.ContentfulManagementToken == "" {
		for _, name := range legacyTokenVars {
			if v := os.Getenv(name); v != "" {
				c.ContentfulManagementToken = v
				break
			}
		}
	}
	if c.EmailFrom == "" {
		c.EmailFrom = c.EmailUser
	}
	c.FallbackLanguage = restock.NormalizeLanguage(c.FallbackLanguage)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Validate checks the values envconfig cannot.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.ContentfulManagementToken == "" {
		errs = append(errs, errors.New("CONTENTFUL_MANAGEMENT_TOKEN is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.ContentfulPageSize < 1 || c.ContentfulPageSize > 1000 {
		errs = append(errs, fmt.Errorf("CONTENTFUL_PAGE_SIZE must be between 1 and 1000, got %d", c.ContentfulPageSize))
	}
	if c.ContentfulRetryMax < 0 {
		errs = append(errs, errors.New("CONTENTFUL_RETRY_MAX must not be negative"))
	}
	switch c.SMTPEncryption {
	case "none", "opportunistic", "starttls", "ssl_tls":
	default:
		errs = append(errs, fmt.Errorf("SMTP_ENCRYPTION %q is not one of none, opportunistic, starttls, ssl_tls", c.SMTPEncryption))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, errors.New("SEND_TIMEOUT must be positive"))
	}
	if c.MaxConcurrentSends < 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_SENDS must not be negative"))
	}
	if c.FallbackLanguage == "" {
		errs = append(errs, errors.New("FALLBACK_LANGUAGE must not be empty"))
	}
	if u, err := url.Parse(c.ShopBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SHOP_BASE_URL %q is not an absolute URL", c.ShopBaseURL))
	}
	if c.DeliveryLogRetention < 0 {
		errs = append(errs, errors.New("DELIVERY_LOG_RETENTION must not be negative"))
	}
	return errors.Join(errs...)
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Registration returns the Contentful client configuration.
func (c *AppConfig) Registration() registration.Config {
	return registration.Config{
		BaseURL:          c.ContentfulBaseURL,
		SpaceID:          c.ContentfulSpaceID,
		Environment:      c.ContentfulEnvironment,
		AccessToken:      c.ContentfulManagementToken,
		ContentType:      c.ContentfulContentType,
		PageSize:         c.ContentfulPageSize,
		RetryMax:         c.ContentfulRetryMax,
		FallbackLanguage: c.FallbackLanguage,
	}
}

// SMTP returns the mail transport configuration.
func (c *AppConfig) SMTP() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Username:   c.EmailUser,
		Password:   c.EmailPass,
		FromAddr:   c.EmailFrom,
		Encryption: c.SMTPEncryption,
		Timeout:    c.SendTimeout,
	}
}

// AuditLogEnabled reports whether the SQLite delivery log is configured.
func (c *AppConfig) AuditLogEnabled() bool {
	return c.DatabasePath != ""
}

// TracingEnabled reports whether traces are exported.
func (c *AppConfig) TracingEnabled() bool {
	return c.OTLPEndpoint != ""
}
