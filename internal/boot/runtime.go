// Package boot provides runtime configuration for the server: env overrides and validation.
package boot

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kurvcrm/kurv/internal/config"
	"github.com/kurvcrm/kurv/internal/transport/twilio"
)

// RuntimeConfig holds settings that may be overridden by environment variables
// (HTTP_ADDR, INGEST_SHARED_SECRET, TWILIO_*, PUBLIC_BASE_URL).
type RuntimeConfig struct {
	ServerAddr          string
	RateLimit           float64
	IngestSecret        string
	SerializeResolution bool
	Twilio              config.TwilioConfig
	// StatusCallbackURL is the public URL Twilio posts status callbacks to; empty when unknown.
	StatusCallbackURL string
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		ServerAddr:          cfg.Server.Addr,
		RateLimit:           cfg.Server.RateLimit,
		IngestSecret:        cfg.Ingest.SharedSecret,
		SerializeResolution: cfg.Ingest.SerializeResolution,
		Twilio:              cfg.Twilio,
	}

	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}
	if value := os.Getenv("INGEST_SHARED_SECRET"); value != "" {
		ret.IngestSecret = value
	}
	if value := os.Getenv("TWILIO_ACCOUNT_SID"); value != "" {
		ret.Twilio.AccountSID = value
	}
	if value := os.Getenv("TWILIO_AUTH_TOKEN"); value != "" {
		ret.Twilio.AuthToken = value
	}
	if value := os.Getenv("TWILIO_WHATSAPP_FROM"); value != "" {
		ret.Twilio.WhatsAppFrom = value
	}
	if value := os.Getenv("PUBLIC_BASE_URL"); value != "" {
		ret.Twilio.PublicBaseURL = value
	}

	ret.Twilio.PublicBaseURL = strings.TrimRight(strings.TrimSpace(ret.Twilio.PublicBaseURL), "/")
	ret.Twilio.StatusSignature = strings.ToLower(strings.TrimSpace(ret.Twilio.StatusSignature))
	if ret.Twilio.StatusSignature == "" {
		ret.Twilio.StatusSignature = config.DefaultSignatureMode
	}
	if ret.Twilio.PublicBaseURL != "" {
		ret.StatusCallbackURL = ret.Twilio.PublicBaseURL + twilio.StatusCallbackPath
	}

	if err := validate(cfg, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func validate(cfg config.Config, rc *RuntimeConfig) error {
	switch rc.Twilio.StatusSignature {
	case config.SignatureModeOff, config.SignatureModeLog:
	case config.SignatureModeEnforce:
		if rc.Twilio.PublicBaseURL == "" || strings.TrimSpace(rc.Twilio.AuthToken) == "" {
			return errors.New("twilio.status_signature=enforce requires public_base_url and auth_token")
		}
	default:
		return fmt.Errorf("invalid twilio.status_signature: %q", rc.Twilio.StatusSignature)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", config.StorageDriverPostgres, config.StorageDriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver: %q", cfg.Storage.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Email.Transport)) {
	case "", config.EmailTransportMailgun, config.EmailTransportSMTP:
	default:
		return fmt.Errorf("invalid email.transport: %q", cfg.Email.Transport)
	}

	if rc.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

// ConfigPath returns the config file path from CONFIG_PATH, or fallback.
func ConfigPath(fallback string) string {
	if value := strings.TrimSpace(os.Getenv("CONFIG_PATH")); value != "" {
		return value
	}
	return fallback
}
