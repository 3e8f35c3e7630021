// Package config loads service configuration from .env, an optional YAML
// file and environment variables. Environment variables win over YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Delivery modes.
const (
	DeliveryResend = "resend"
	DeliveryRelay  = "relay"
)

// Config holds the contact API settings.
type Config struct {
	Port int

	TurnstileSecret    string
	TurnstileVerifyURL string

	DeliveryMode    string
	DeliveryTimeout time.Duration

	ResendAPIKey string
	ResendAPIURL string
	EmailFrom    string
	EmailTo      string
	EmailReplyTo string

	RelayURL     string
	SharedSecret string

	AllowedOrigins    []string
	TrustedProxyCount int
	MetricsEnabled    bool
}

// RelayConfig holds the mail relay settings.
type RelayConfig struct {
	Port               int
	SharedSecret       string
	SenderAddress      string
	SenderName         string
	DestinationAddress string
	SMTPAddr           string
	SMTPUsername       string
	SMTPPassword       string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Port      int `yaml:"port"`
	Turnstile struct {
		SecretKey string `yaml:"secret_key"`
		VerifyURL string `yaml:"verify_url"`
	} `yaml:"turnstile"`
	Delivery struct {
		Mode    string `yaml:"mode"`
		Timeout string `yaml:"timeout"`
	} `yaml:"delivery"`
	Resend struct {
		APIKey string `yaml:"api_key"`
		APIURL string `yaml:"api_url"`
	} `yaml:"resend"`
	Email struct {
		From    string `yaml:"from"`
		To      string `yaml:"to"`
		ReplyTo string `yaml:"reply_to"`
	} `yaml:"email"`
	Relay struct {
		URL          string `yaml:"url"`
		Port         int    `yaml:"port"`
		SharedSecret string `yaml:"shared_secret"`
		Sender       struct {
			Address string `yaml:"address"`
			Name    string `yaml:"name"`
		} `yaml:"sender"`
		Destination string `yaml:"destination"`
		SMTP        struct {
			Addr     string `yaml:"addr"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"smtp"`
	} `yaml:"relay"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// LoadDotEnv loads .env files if present. Missing files are not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load builds the contact API configuration.
func Load() (*Config, error) {
	raw, err := readYAML(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	timeout := 5 * time.Second
	if raw.Delivery.Timeout != "" {
		d, err := time.ParseDuration(raw.Delivery.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse delivery.timeout: %w", err)
		}
		timeout = d
	}

	cfg := &Config{
		Port:               envOrDefaultInt("PORT", firstNonZero(raw.Port, 8080)),
		TurnstileSecret:    envOrDefault("TURNSTILE_SECRET_KEY", raw.Turnstile.SecretKey),
		TurnstileVerifyURL: envOrDefault("TURNSTILE_VERIFY_URL", raw.Turnstile.VerifyURL),
		DeliveryMode:       strings.ToLower(envOrDefault("DELIVERY_MODE", firstNonEmpty(raw.Delivery.Mode, DeliveryResend))),
		DeliveryTimeout:    envOrDefaultDuration("DELIVERY_TIMEOUT", timeout),
		ResendAPIKey:       envOrDefault("RESEND_API_KEY", raw.Resend.APIKey),
		ResendAPIURL:       envOrDefault("RESEND_API_URL", raw.Resend.APIURL),
		EmailFrom:          envOrDefault("EMAIL_FROM", raw.Email.From),
		EmailTo:            envOrDefault("EMAIL_TO", raw.Email.To),
		EmailReplyTo:       envOrDefault("EMAIL_REPLY_TO", raw.Email.ReplyTo),
		RelayURL:           envOrDefault("RELAY_URL", raw.Relay.URL),
		SharedSecret:       envOrDefault("WORKER_SHARED_SECRET", raw.Relay.SharedSecret),
		AllowedOrigins:     raw.CORS.AllowedOrigins,
		TrustedProxyCount:  envOrDefaultInt("TRUSTED_PROXY_COUNT", 0),
		MetricsEnabled:     envOrDefault("METRICS_ENABLED", "true") != "false",
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = SplitList(v)
	}

	switch cfg.DeliveryMode {
	case DeliveryResend, DeliveryRelay:
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.DeliveryMode)
	}
	if cfg.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("delivery timeout must be positive, got %s", cfg.DeliveryTimeout)
	}

	return cfg, nil
}

// Missing lists the settings a submission needs but that are unset. The
// server still starts with gaps; requests then fail as misconfigured.
func (c *Config) Missing() []string {
	var missing []string
	if c.TurnstileSecret == "" {
		missing = append(missing, "TURNSTILE_SECRET_KEY")
	}
	switch c.DeliveryMode {
	case DeliveryRelay:
		if c.RelayURL == "" {
			missing = append(missing, "RELAY_URL")
		}
		if c.SharedSecret == "" {
			missing = append(missing, "WORKER_SHARED_SECRET")
		}
	default:
		if c.ResendAPIKey == "" {
			missing = append(missing, "RESEND_API_KEY")
		}
		if c.EmailFrom == "" {
			missing = append(missing, "EMAIL_FROM")
		}
		if c.EmailTo == "" {
			missing = append(missing, "EMAIL_TO")
		}
	}
	return missing
}

// LoadRelay builds the mail relay configuration.
func LoadRelay() (*RelayConfig, error) {
	raw, err := readYAML(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &RelayConfig{
		Port:               envOrDefaultInt("RELAY_PORT", firstNonZero(raw.Relay.Port, 8081)),
		SharedSecret:       envOrDefault("WORKER_SHARED_SECRET", raw.Relay.SharedSecret),
		SenderAddress:      envOrDefault("SENDER_ADDRESS", raw.Relay.Sender.Address),
		SenderName:         envOrDefault("SENDER_NAME", firstNonEmpty(raw.Relay.Sender.Name, "Contact Form")),
		DestinationAddress: envOrDefault("DESTINATION_ADDRESS", raw.Relay.Destination),
		SMTPAddr:           envOrDefault("SMTP_ADDR", firstNonEmpty(raw.Relay.SMTP.Addr, "localhost:25")),
		SMTPUsername:       envOrDefault("SMTP_USERNAME", raw.Relay.SMTP.Username),
		SMTPPassword:       envOrDefault("SMTP_PASSWORD", raw.Relay.SMTP.Password),
	}, nil
}

// readYAML parses path with ${VAR} expansion. An empty path yields an empty
// config.
func readYAML(path string) (rawConfig, error) {
	var raw rawConfig
	if path == "" {
		return raw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return raw, fmt.Errorf("parse config YAML: %w", err)
	}
	return raw, nil
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
