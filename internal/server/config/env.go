package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvFiles are loaded into the process environment when present.
// Variables already set are not overridden.
var dotEnvFiles = []string{".env"}

func loadDotEnv() error {
	for _, f := range dotEnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// parseEnv overlays environment variables onto config. Empty variables are
// treated as unset.
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("PRIVATE_KEY_FILE", &config.PrivateKey)
	str("PUBLIC_KEY_FILE", &config.PublicKey)
	str("ARGON2_SECRET", &config.PasswordPepper)
	str("API_URL", &config.Issuer)
	str("REDIS_ADDR", &config.RedisAddr)
	str("MAIL_PROVIDER", &config.MailProvider)
	str("MAIL_FROM", &config.MailFrom)
	str("MAIL_SANDBOX_TO", &config.MailSandboxTo)
	str("SES_REGION", &config.SESRegion)
	str("SES_ENDPOINT", &config.SESEndpoint)
	str("SES_ACCESS_KEY_ID", &config.SESAccessKeyID)
	str("SES_SECRET_ACCESS_KEY", &config.SESSecretAccessKey)
	str("LOG_FORMAT", &config.LogFormat)
	str("LOG_LEVEL", &config.LogLevel)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SESSION_TOKEN_TTL", &config.SessionTokenTTL},
		{"REGISTER_TOKEN_TTL", &config.RegisterTokenTTL},
		{"OTP_COOLDOWN", &config.OTPCooldown},
		{"REQUEST_TIMEOUT", &config.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"COOKIE_SECURE", &config.CookieSecure},
		{"DEV_MODE", &config.DevMode},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = parsed
	}

	return nil
}
