package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string // CIDRs whose X-Forwarded-For is honored

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL       string
	AMQPExchange  string
	AMQPMailQueue string

	// Redis, optional: shared OTP throttling across instances
	RedisURL string

	// SMTP, used by the mailer worker
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Auth
	NotifyTimeout    time.Duration
	OTPRequestLimit  int
	OTPVerifyLimit   int
	OTPLimitWindow   time.Duration
	SessionCacheSize int
	SessionCacheTTL  time.Duration

	// Reporting
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string

	// OTP sweeper
	OTPSweepInterval time.Duration
	OTPRetention     time.Duration
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneypall.db"),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "moneypall"),
		AMQPMailQueue: getEnv("AMQP_MAIL_QUEUE", "otp_mail"),

		RedisURL: getEnv("REDIS_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 25),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@moneypall.uz"),

		NotifyTimeout:    getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		OTPRequestLimit:  getEnvInt("OTP_REQUEST_LIMIT", 5),
		OTPVerifyLimit:   getEnvInt("OTP_VERIFY_LIMIT", 10),
		OTPLimitWindow:   getEnvDuration("OTP_LIMIT_WINDOW", 15*time.Minute),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1000),
		SessionCacheTTL:  getEnvDuration("SESSION_CACHE_TTL", time.Minute),

		Timezone: getEnv("TIMEZONE", "UTC"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		OTPSweepInterval: getEnvDuration("OTP_SWEEP_INTERVAL", time.Hour),
		OTPRetention:     getEnvDuration("OTP_RETENTION", 24*time.Hour),
	}
}

// Location returns the configured reporting time zone, UTC when unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPMailQueue == "" {
			errors = append(errors, "AMQP mail queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RedisURL != "" {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}

	if c.NotifyTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid notify timeout %v: must be positive", c.NotifyTimeout))
	}
	if c.OTPRequestLimit < 0 || c.OTPVerifyLimit < 0 {
		errors = append(errors, "OTP limits cannot be negative")
	}
	if (c.OTPRequestLimit > 0 || c.OTPVerifyLimit > 0) && c.OTPLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid OTP limit window %v: must be at least 1 second", c.OTPLimitWindow))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid session cache TTL %v: must be positive", c.SessionCacheTTL))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if format := strings.ToLower(c.LogFormat); format != "text" && format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.OTPSweepInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid OTP sweep interval %v: must be at least 1 second", c.OTPSweepInterval))
	}
	if c.OTPRetention < 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid OTP retention %v: must be at least 5 minutes", c.OTPRetention))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMailer checks the settings only the mailer worker needs.
func (c *Config) ValidateMailer() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the mailer worker")
	}
	if c.SMTPHost == "" {
		errors = append(errors, "SMTP host cannot be empty")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	if c.MailFrom == "" {
		errors = append(errors, "MAIL_FROM cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("mailer configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
