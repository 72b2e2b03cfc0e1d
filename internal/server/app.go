// Package server wires the blogkeeper server together: storage, token codec,
// password hashing, mail delivery, the OTP throttle and the HTTP API. It also
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/blogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/blogkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/blogkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/dmitrijs2005/blogkeeper/internal/server/throttle"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *httpapi.Server
}

// OpenDB opens the PostgreSQL pool named by cfg and checks it answers.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)

	privatePEM, publicPEM, err := cfg.KeyPEMs()
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewCodecFromPEM(privatePEM, publicPEM, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	hasher, err := cryptox.NewPasswordHasher(cfg.PasswordPepper)
	if err != nil {
		return nil, fmt.Errorf("password hasher error: %w", err)
	}

	sender, err := mailer.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: cfg, logger: logger, db: db}

	var th throttle.Throttle = throttle.Nop{}
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		th = throttle.NewRedisThrottle(app.redis)
	} else {
		logger.Warn(ctx, "REDIS_ADDR is empty, OTP requests are not throttled")
	}

	ex := dbx.NewSQLExecutor(db)
	otp := services.NewOTPService(ex, rm, sender, th, cfg.OTPCooldown, logger)
	as := services.NewAuthService(ex, rm, hasher, codec, otp, cfg, logger)
	ads := services.NewAdminService(ex, rm, hasher, logger)
	ps := services.NewPostService(ex, rm, logger)

	app.server = httpapi.NewServer(cfg, logger, codec, as, ads, ps, metrics.New())
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
