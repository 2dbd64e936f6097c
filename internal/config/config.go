// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Env      string
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Phone    PhoneConfig
	Reset    ResetConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type JWTConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Secret       string
	TTL          time.Duration // default session lifetime
	LongLivedTTL time.Duration // "remember me" lifetime
	CookieName   string
	CookieSecure bool
}

type PhoneConfig struct {
	// EncryptionKey is the base64-encoded 256-bit AES key for phone
	// ciphertext. Required in production; development generates an
	// ephemeral key with a loud warning.
	EncryptionKey string
	OtpExpiry     time.Duration
}

type ResetConfig struct {
	Expiry time.Duration
	// URL is the frontend reset page the mailed link points at.
	URL string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type SMSConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Enabled    bool
	AccountSID string
	AuthToken  string
	FromNumber string
}

type AuthConfig struct {
	BcryptCost int
}

// IsProduction reports whether the process runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate enforces the settings that must not silently degrade. A missing
// encryption key in production would make every stored phone number
// unrecoverable after the next restart, so startup fails loudly instead.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt-secret is required in production")
	}
	if c.Phone.EncryptionKey == "" {
		return fmt.Errorf("phone-encryption-key is required in production")
	}
	if c.JWT.TTL >= c.JWT.LongLivedTTL {
		return fmt.Errorf("jwt-remember-ttl-hours must exceed jwt-ttl-hours")
	}
	return nil
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Env: cmd.String("env"),
		Server: ServerConfig{
			Host: cmd.String("host"),
			Port: int(cmd.Int("port")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		JWT: JWTConfig{
			Secret:       cmd.String("jwt-secret"),
			TTL:          time.Duration(cmd.Int("jwt-ttl-hours")) * time.Hour,
			LongLivedTTL: time.Duration(cmd.Int("jwt-remember-ttl-hours")) * time.Hour,
			CookieName:   cmd.String("jwt-cookie-name"),
			CookieSecure: cmd.Bool("cookie-secure"),
		},
		Phone: PhoneConfig{
			EncryptionKey: cmd.String("phone-encryption-key"),
			OtpExpiry:     time.Duration(cmd.Int("otp-expiry-minutes")) * time.Minute,
		},
		Reset: ResetConfig{
			Expiry: time.Duration(cmd.Int("reset-expiry-minutes")) * time.Minute,
			URL:    cmd.String("reset-url"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		SMS: SMSConfig{
			Enabled:    cmd.Bool("sms-enabled"),
			AccountSID: cmd.String("twilio-account-sid"),
			AuthToken:  cmd.String("twilio-auth-token"),
			FromNumber: cmd.String("twilio-from-number"),
		},
		Auth: AuthConfig{
			BcryptCost: int(cmd.Int("bcrypt-cost")),
		},
	}
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "env",
			Value:   "development",
			Usage:   "Environment (development, production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APP_ENV"), toml.TOML("env", configFile)),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   5000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/counselling.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret for signing session tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("jwt.secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-ttl-hours",
			Value:   24,
			Usage:   "Session token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_TTL_HOURS"), toml.TOML("jwt.ttl_hours", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-remember-ttl-hours",
			Value:   720,
			Usage:   "Remember-me token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REMEMBER_TTL_HOURS"), toml.TOML("jwt.remember_ttl_hours", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-cookie-name",
			Value:   "rbcc_auth",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_COOKIE_NAME"), toml.TOML("jwt.cookie_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "cookie-secure",
			Usage:   "Set the Secure attribute on session cookies",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_SECURE"), toml.TOML("jwt.cookie_secure", configFile)),
		},
		&cli.StringFlag{
			Name:    "phone-encryption-key",
			Usage:   "Base64-encoded 256-bit key for phone encryption",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PHONE_ENCRYPTION_KEY"), toml.TOML("phone.encryption_key", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-expiry-minutes",
			Value:   10,
			Usage:   "OTP challenge lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PHONE_OTP_EXPIRY_MINUTES"), toml.TOML("phone.otp_expiry_minutes", configFile)),
		},
		&cli.IntFlag{
			Name:    "reset-expiry-minutes",
			Value:   30,
			Usage:   "Password reset token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_RESET_EXPIRY_MINUTES"), toml.TOML("reset.expiry_minutes", configFile)),
		},
		&cli.StringFlag{
			Name:    "reset-url",
			Value:   "http://localhost:8000/reset-password.html",
			Usage:   "Frontend URL for password reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_RESET_URL"), toml.TOML("reset.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_USER"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@rbccounselling.com",
			Usage:   "From address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "RBC Counselling",
			Usage:   "From display name for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.BoolFlag{
			Name:    "sms-enabled",
			Usage:   "Enable outbound SMS",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_ENABLED"), toml.TOML("sms.enabled", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-account-sid",
			Usage:   "Twilio account SID",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_ACCOUNT_SID"), toml.TOML("sms.account_sid", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-auth-token",
			Usage:   "Twilio auth token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_AUTH_TOKEN"), toml.TOML("sms.auth_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-from-number",
			Usage:   "Twilio sender number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_PHONE_NUMBER"), toml.TOML("sms.from_number", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   12,
			Usage:   "bcrypt cost factor for password hashing",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_ROUNDS"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
	}
}
