package repository

import (
	"context"
	"database/sql"
	"fmt"

	auth "github.com/furfightclub/ffc-auth-service"
	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures the database connection
type Options struct {
	Driver string
	DSN    string
	Debug  bool
	// MaxOpenConns is applied when positive. In memory SQLite
	// databases need a single connection to stay alive.
	MaxOpenConns int
}

// Open connects to the configured database and wraps it with bun.
func Open(opts Options) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch opts.Driver {
	case DriverSQLite, "":
		if sqldb, err = sql.Open(sqliteshim.ShimName, opts.DSN); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		if sqldb, err = sql.Open("pgx", opts.DSN); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New(fmt.Sprintf("unsupported database driver %q", opts.Driver), goerrors.CategoryBadInput)
	}

	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if opts.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return db, nil
}

// Migrate applies the embedded goose migrations for driver.
func Migrate(ctx context.Context, db *bun.DB, driver string, logger auth.Logger) error {
	if driver == "" {
		driver = DriverSQLite
	}

	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(auth.GetMigrationsFS())
	goose.SetLogger(gooseLogger{logger: logger})

	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set migration dialect")
	}

	if err := goose.UpContext(ctx, db.DB, auth.MigrationsDir(driver)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}

type gooseLogger struct {
	logger auth.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	if g.logger != nil {
		g.logger.Debug(fmt.Sprintf(format, v...))
	}
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	if g.logger != nil {
		g.logger.Error(fmt.Sprintf(format, v...))
	}
}
