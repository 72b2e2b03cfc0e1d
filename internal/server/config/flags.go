package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-k string   signing key, PEM or path
//	-K string   verification key, PEM or path
//	-s string   password pepper
//	-i string   token issuer
//	-t int      session token validity, hours
//	-r string   Redis address for the OTP throttle
//	-m string   mail provider (ses or log)
//
// Only these flags are looked at; anything else in args is ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-k", "-K", "-s", "-i", "-t", "-r", "-m"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PrivateKey, "k", config.PrivateKey, "token signing key (PEM or file)")
	fs.StringVar(&config.PublicKey, "K", config.PublicKey, "token verification key (PEM or file)")
	fs.StringVar(&config.PasswordPepper, "s", config.PasswordPepper, "password pepper")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	sessionHours := fs.Int("t", int(config.SessionTokenTTL.Hours()), "session token validity (in hours)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.MailProvider, "m", config.MailProvider, "mail provider")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTokenTTL = time.Duration(*sessionHours) * time.Hour
		}
	})
	return nil
}
