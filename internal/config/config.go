// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "kurv"
	DefaultPGSSLMode       = "disable"
	DefaultTwilioAPIBase   = "https://api.twilio.com"
	DefaultMailgunRegion   = "us"
	DefaultSMTPPort        = 587
	DefaultSMTPSecurity    = "starttls"
	DefaultStorageDriver   = StorageDriverPostgres
	DefaultSignatureMode   = SignatureModeLog
	DefaultEmailTransport  = EmailTransportMailgun
	DefaultServerRateLimit = 20
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Status callback signature modes.
const (
	SignatureModeOff     = "off"
	SignatureModeLog     = "log"
	SignatureModeEnforce = "enforce"
)

// Email transports.
const (
	EmailTransportMailgun = "mailgun"
	EmailTransportSMTP    = "smtp"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Ingest   IngestConfig   `toml:"ingest"`
	Twilio   TwilioConfig   `toml:"twilio"`
	Email    EmailConfig    `toml:"email"`
	Mailgun  MailgunConfig  `toml:"mailgun"`
	SMTP     SMTPConfig     `toml:"smtp"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and the per-client request rate (req/s, 0 disables).
type ServerConfig struct {
	Addr      string  `toml:"addr"`
	RateLimit float64 `toml:"rate_limit"`
}

// StorageConfig selects the persistence driver ("postgres" or "memory").
type StorageConfig struct {
	Driver      string `toml:"driver"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// IngestConfig controls inbound webhook handling.
// SharedSecret is compared against the X-Ingest-Secret header only when non-empty.
type IngestConfig struct {
	SharedSecret        string `toml:"shared_secret"`
	SerializeResolution bool   `toml:"serialize_resolution"`
}

// TwilioConfig holds the WhatsApp transport credentials and status callback settings.
type TwilioConfig struct {
	AccountSID      string `toml:"account_sid"`
	AuthToken       string `toml:"auth_token"`
	WhatsAppFrom    string `toml:"whatsapp_from"`
	APIBase         string `toml:"api_base"`
	PublicBaseURL   string `toml:"public_base_url"`
	StatusSignature string `toml:"status_signature"`
}

// EmailConfig selects the outbound email transport and sender address.
type EmailConfig struct {
	Transport string `toml:"transport"`
	From      string `toml:"from"`
}

// MailgunConfig holds Mailgun API and inbound webhook settings.
type MailgunConfig struct {
	Domain            string `toml:"domain"`
	APIKey            string `toml:"api_key"`
	Region            string `toml:"region"`
	WebhookSigningKey string `toml:"webhook_signing_key"`
}

// SMTPConfig holds SMTP submission settings (security: tls, starttls, none).
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Security string `toml:"security"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:      DefaultHTTPAddr,
			RateLimit: DefaultServerRateLimit,
		},
		Storage: StorageConfig{
			Driver:      DefaultStorageDriver,
			AutoMigrate: true,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Ingest: IngestConfig{
			SerializeResolution: true,
		},
		Twilio: TwilioConfig{
			APIBase:         DefaultTwilioAPIBase,
			StatusSignature: DefaultSignatureMode,
		},
		Email: EmailConfig{
			Transport: DefaultEmailTransport,
		},
		Mailgun: MailgunConfig{
			Region: DefaultMailgunRegion,
		},
		SMTP: SMTPConfig{
			Port:     DefaultSMTPPort,
			Security: DefaultSMTPSecurity,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
