// Package config handles configuration for the blog server: defaults, a JSON
// file overlay, environment variables (optionally from .env) and finally
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/logging"
)

const (
	MailProviderSES = "ses"
	MailProviderLog = "log"
)

// Config holds runtime settings for the server.
//
// PrivateKey and PublicKey hold either an inline PEM block (literal "\n"
// sequences are accepted) or a path to a PEM file.
type Config struct {
	HTTPAddr         string
	DatabaseDSN      string
	PrivateKey       string
	PublicKey        string
	PasswordPepper   string
	Issuer           string
	SessionTokenTTL  time.Duration
	RegisterTokenTTL time.Duration
	OTPCooldown      time.Duration
	RequestTimeout   time.Duration
	RedisAddr        string

	MailProvider       string
	MailFrom           string
	MailSandboxTo      string
	SESRegion          string
	SESEndpoint        string
	SESAccessKeyID     string
	SESSecretAccessKey string

	CookieSecure bool
	LogFormat    string
	LogLevel     string

	// DevMode unlocks settings unfit for production, such as the log mailer.
	DevMode bool
}

// LoadDefaults fills non-secret settings. Secrets have no defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.Issuer = "blogkeeper"
	c.SessionTokenTTL = 14 * 24 * time.Hour
	c.RegisterTokenTTL = 24 * time.Hour
	c.OTPCooldown = time.Minute
	c.RequestTimeout = 10 * time.Second
	c.MailProvider = MailProviderSES
	c.MailFrom = "onboarding@blogkeeper.dev"
	c.SESRegion = "us-east-1"
	c.LogFormat = logging.FormatJSON
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, the JSON file named by -c/-config,
// the environment and the flags in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fails when a required secret is missing or a setting is out of
// range. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required (DATABASE_URL or -d)"))
	}
	if c.PrivateKey == "" {
		errs = append(errs, errors.New("token signing key is required (PRIVATE_KEY_FILE or -k)"))
	}
	if c.PublicKey == "" {
		errs = append(errs, errors.New("token verification key is required (PUBLIC_KEY_FILE or -K)"))
	}
	if c.PasswordPepper == "" {
		errs = append(errs, errors.New("password pepper is required (ARGON2_SECRET or -s)"))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("token issuer must not be empty"))
	}
	if c.SessionTokenTTL <= 0 || c.RegisterTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.OTPCooldown < 0 {
		errs = append(errs, errors.New("otp cooldown must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	switch c.MailProvider {
	case MailProviderSES:
		if c.SESAccessKeyID == "" || c.SESSecretAccessKey == "" {
			errs = append(errs, errors.New("SES credentials are required (SES_ACCESS_KEY_ID, SES_SECRET_ACCESS_KEY)"))
		}
		if c.SESRegion == "" {
			errs = append(errs, errors.New("SES region is required"))
		}
		if c.MailFrom == "" {
			errs = append(errs, errors.New("mail sender address is required"))
		}
	case MailProviderLog:
		if !c.DevMode {
			errs = append(errs, errors.New("mail provider \"log\" requires dev mode (DEV_MODE=true)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail provider %q", c.MailProvider))
	}

	switch c.LogFormat {
	case logging.FormatJSON, logging.FormatText, logging.FormatZerolog:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// KeyPEMs resolves PrivateKey and PublicKey to PEM bytes.
func (c *Config) KeyPEMs() (private, public []byte, err error) {
	private, err = resolvePEM(c.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("private key: %w", err)
	}
	public, err = resolvePEM(c.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	return private, public, nil
}

func resolvePEM(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("not configured")
	}
	if strings.Contains(value, "-----BEGIN") {
		return []byte(normalizePEM(value)), nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, err
	}
	return []byte(normalizePEM(string(data))), nil
}

func normalizePEM(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, `\n`) && !strings.Contains(value, "\n") {
		value = strings.ReplaceAll(value, `\n`, "\n")
	}
	return value
}
