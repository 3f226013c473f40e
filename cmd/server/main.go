package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/furfightclub/ffc-auth-service/config"
	"github.com/furfightclub/ffc-auth-service/notify"
	"github.com/furfightclub/ffc-auth-service/repository"
)

type App struct {
	config   *config.BaseConfig
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenService
	accounts *auth.AccountService
	notifier auth.Notifier
	closers  []func() error
	cron     *cron.Cron
	srv      *fiber.App
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lgr := newLogger(cfg.App.Debug)

	if cfg.App.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}

	app := &App{config: cfg, logger: lgr}
	ctx := context.Background()

	steps := []func(context.Context, *App) error{
		WithTokens,
		WithPersistence,
		WithNotifications,
		WithAccounts,
		WithJobs,
		WithHTTPServer,
	}

	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			app.GetLogger("app").Error("startup failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	go func() {
		if err := app.srv.Listen(cfg.App.Address); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
	defer cancel()

	if err := app.srv.ShutdownWithContext(shutdownCtx); err != nil {
		app.GetLogger("http").Error("graceful shutdown failed", "error", err)
	}

	app.Close()
}

func newLogger(debug bool) *glog.BaseLogger {
	if debug {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("app"),
			glog.WithAddSource(true),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

// Close stops background jobs and releases connections
func (a *App) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.GetLogger("app").Warn("close failed", "error", err)
		}
	}
}

func WithTokens(_ context.Context, app *App) error {
	keys, err := auth.LoadKeySet(app.config.Auth.KeyPaths())
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(keys, app.config.Auth)
	if err != nil {
		return err
	}

	app.tokens = tokens.WithLogger(app.GetLogger("auth:tokens"))
	app.GetLogger("auth:tokens").Info("signing keys loaded", "kid", keys.SigningKID)
	return nil
}

func WithPersistence(ctx context.Context, app *App) error {
	p := app.config.Persistence

	db, err := repository.Open(repository.Options{
		Driver:       p.Driver,
		DSN:          p.DSN,
		Debug:        p.Debug,
		MaxOpenConns: p.MaxOpenConns,
	})
	if err != nil {
		return err
	}
	app.closers = append(app.closers, db.Close)

	if err := repository.Migrate(ctx, db, p.Driver, app.GetLogger("persistence")); err != nil {
		return err
	}

	app.db = db
	app.repo = auth.NewRepositoryManager(db)
	return app.repo.Validate()
}

func WithNotifications(ctx context.Context, app *App) error {
	n := app.config.Notifications
	if n.RedisAddr == "" {
		app.GetLogger("notify").Warn("redis address not configured, account events are dropped")
		return nil
	}

	client, err := notify.Connect(ctx, notify.Options{
		Addr:     n.RedisAddr,
		Password: n.RedisPassword,
		DB:       n.RedisDB,
	})
	if err != nil {
		return err
	}
	app.closers = append(app.closers, client.Close)

	app.notifier = notify.NewRedisNotifier(client, n.Queue)
	return nil
}

func WithAccounts(_ context.Context, app *App) error {
	app.accounts = auth.NewAccountService(app.repo, app.tokens).
		WithLogger(app.GetLogger("auth:accounts")).
		WithNotifier(app.notifier).
		WithEmailTokenTTL(app.config.Auth.EmailTokenTTL)
	return nil
}

func WithJobs(_ context.Context, app *App) error {
	schedule := app.config.Jobs.TokenPurgeSchedule
	if schedule == "" {
		return nil
	}

	c := cron.New()
	job := auth.NewTokenPurgeJob(app.repo.Users()).WithLogger(app.GetLogger("jobs:purge"))
	if _, err := c.AddJob(schedule, job); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid token purge schedule").
			WithMetadata(map[string]any{"schedule": schedule})
	}

	c.Start()
	app.cron = c
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := fiber.New(fiber.Config{
		AppName:               app.config.App.Name,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          auth.NewErrorHandler(app.GetLogger("http")),
		DisableStartupMessage: !app.config.App.Debug,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	srv.Use(recover.New())
	srv.Use(requestid.New())
	srv.Use(logger.New())

	var serviceGuards []auth.ValidationListener
	if allowed := app.config.Auth.ServiceNames(); len(allowed) > 0 {
		serviceGuards = append(serviceGuards, auth.RequireServices(allowed...))
	}

	controller := auth.NewUserController(app.accounts,
		auth.WithControllerLogger(app.GetLogger("http:user")),
		auth.WithGateways(
			auth.NewServiceGateway(app.tokens, app.config.Auth, serviceGuards...),
			auth.NewUserGateway(app.tokens, app.config.Auth),
		),
		auth.WithServiceName(app.config.Auth.ServiceName),
		auth.WithDebug(app.config.App.Debug),
	)

	auth.RegisterUserRoutes(srv, controller)

	app.srv = srv
	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
