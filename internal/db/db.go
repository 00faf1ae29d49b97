package db

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/campprojects/dashboard/internal/logging"
)

// Options selects and tunes the record store connection.
type Options struct {
	Driver string // postgres or sqlite
	DSN    string
	Schema string // postgres only; created if missing and put on the search_path
	Debug  bool
}

// Connect opens the pool. The caller owns it and must call Close.
func Connect(opts Options, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dsn := opts.DSN
		if opts.Schema != "" {
			dsn = withSearchPath(dsn, opts.Schema)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.Gorm(log, opts.Debug),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if opts.Driver == "sqlite" {
		// One writer at a time; sqlite locks the whole file anyway.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Driver == "postgres" && opts.Schema != "" {
		if err := EnsureSchema(database, opts.Schema); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ensure schema %s: %w", opts.Schema, err)
		}
	}

	log.Info("connected to database", zap.String("driver", opts.Driver))
	return database, nil
}

// Close releases the pool behind d.
func Close(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return strings.TrimSpace(dsn) + " search_path=" + schema
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
