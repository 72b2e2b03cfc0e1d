// Command seed creates, or promotes, a verified ADMIN account.
//
//	seed -email admin@example.com -username admin [-d DSN] [-s pepper]
//
// The password is read from the terminal, or from SEED_PASSWORD when stdin
// is not a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/blogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
	"github.com/dmitrijs2005/blogkeeper/internal/server"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/dmitrijs2005/blogkeeper/internal/shared"
)

type seedFlags struct {
	email    string
	userName string
}

func parseSeedFlags(args []string) (seedFlags, error) {
	var f seedFlags

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.email, "email", "", "admin email")
	fs.StringVar(&f.userName, "username", "admin", "admin username")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-username"})); err != nil {
		return f, err
	}
	if f.email == "" {
		return f, errors.New("-email is required")
	}
	return f, nil
}

func main() {
	ctx := context.Background()
	args := os.Args[1:]

	f, err := parseSeedFlags(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.DatabaseDSN == "" || cfg.PasswordPepper == "" {
		log.Fatalf("DATABASE_URL and ARGON2_SECRET are required")
	}

	password, err := readAdminPassword(os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer shared.WipeByteArray(password)

	hasher, err := cryptox.NewPasswordHasher(cfg.PasswordPepper)
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := server.OpenDB(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("db init error: %v", err)
	}

	u, created, err := services.SeedAdmin(ctx, dbx.NewSQLExecutor(db), rm, hasher, services.SeedInput{
		UserName: f.userName,
		Email:    f.email,
		Password: string(password),
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	action := "promoted"
	if created {
		action = "created"
	}
	fmt.Printf("admin %s: %s (%s)\n", action, u.Email, u.PublicID)
}
