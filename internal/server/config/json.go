package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
	"github.com/dmitrijs2005/blogkeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "10m" style
// strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	PrivateKey         string         `json:"private_key"`
	PublicKey          string         `json:"public_key"`
	PasswordPepper     string         `json:"password_pepper"`
	Issuer             string         `json:"issuer"`
	SessionTokenTTL    timex.Duration `json:"session_token_ttl"`
	RegisterTokenTTL   timex.Duration `json:"register_token_ttl"`
	OTPCooldown        timex.Duration `json:"otp_cooldown"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	RedisAddr          string         `json:"redis_addr"`
	MailProvider       string         `json:"mail_provider"`
	MailFrom           string         `json:"mail_from"`
	MailSandboxTo      string         `json:"mail_sandbox_to"`
	SESRegion          string         `json:"ses_region"`
	SESEndpoint        string         `json:"ses_endpoint"`
	SESAccessKeyID     string         `json:"ses_access_key_id"`
	SESSecretAccessKey string         `json:"ses_secret_access_key"`
	CookieSecure       bool           `json:"cookie_secure"`
	LogFormat          string         `json:"log_format"`
	LogLevel           string         `json:"log_level"`
	DevMode            bool           `json:"dev_mode"`
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file keep their current values. No flag means no file.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := toJson(config)
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fromJson(config, c)
	return nil
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:           c.HTTPAddr,
		DatabaseDSN:        c.DatabaseDSN,
		PrivateKey:         c.PrivateKey,
		PublicKey:          c.PublicKey,
		PasswordPepper:     c.PasswordPepper,
		Issuer:             c.Issuer,
		SessionTokenTTL:    timex.Duration{Duration: c.SessionTokenTTL},
		RegisterTokenTTL:   timex.Duration{Duration: c.RegisterTokenTTL},
		OTPCooldown:        timex.Duration{Duration: c.OTPCooldown},
		RequestTimeout:     timex.Duration{Duration: c.RequestTimeout},
		RedisAddr:          c.RedisAddr,
		MailProvider:       c.MailProvider,
		MailFrom:           c.MailFrom,
		MailSandboxTo:      c.MailSandboxTo,
		SESRegion:          c.SESRegion,
		SESEndpoint:        c.SESEndpoint,
		SESAccessKeyID:     c.SESAccessKeyID,
		SESSecretAccessKey: c.SESSecretAccessKey,
		CookieSecure:       c.CookieSecure,
		LogFormat:          c.LogFormat,
		LogLevel:           c.LogLevel,
		DevMode:            c.DevMode,
	}
}

func fromJson(config *Config, c *JsonConfig) {
	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.PrivateKey = c.PrivateKey
	config.PublicKey = c.PublicKey
	config.PasswordPepper = c.PasswordPepper
	config.Issuer = c.Issuer
	config.SessionTokenTTL = c.SessionTokenTTL.Duration
	config.RegisterTokenTTL = c.RegisterTokenTTL.Duration
	config.OTPCooldown = c.OTPCooldown.Duration
	config.RequestTimeout = c.RequestTimeout.Duration
	config.RedisAddr = c.RedisAddr
	config.MailProvider = c.MailProvider
	config.MailFrom = c.MailFrom
	config.MailSandboxTo = c.MailSandboxTo
	config.SESRegion = c.SESRegion
	config.SESEndpoint = c.SESEndpoint
	config.SESAccessKeyID = c.SESAccessKeyID
	config.SESSecretAccessKey = c.SESSecretAccessKey
	config.CookieSecure = c.CookieSecure
	config.LogFormat = c.LogFormat
	config.LogLevel = c.LogLevel
	config.DevMode = c.DevMode
}
