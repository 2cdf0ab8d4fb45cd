package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Pinger is the readiness surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client owns the process-wide gorm handle.
type Client struct {
	conn   *gorm.DB
	driver string
}

// New opens Postgres, or SQLite when useSQLite is set or the driver says so.
func New(ctx context.Context, cfg config.DBConfig, useSQLite bool, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("db: empty DSN")
	}
	driver := DriverPostgres
	if useSQLite || strings.EqualFold(cfg.Driver, DriverSQLite) {
		driver = DriverSQLite
	}

	conn, err := gorm.Open(dialector(driver, cfg.DSN), &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: pool: %w", err)
	}
	configurePool(pool, cfg, driver)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "database ready")
	}
	return &Client{conn: conn, driver: driver}, nil
}

// NewFromGorm adopts an open connection; tests hand in in-memory sqlite.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn, driver: conn.Dialector.Name()}
}

func dialector(driver, dsn string) gorm.Dialector {
	if driver == DriverSQLite {
		return sqlite.Open(dsn)
	}
	return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
}

func configurePool(pool *sql.DB, cfg config.DBConfig, driver string) {
	if driver == DriverSQLite {
		// one writer at a time, or sqlite reports "database is locked"
		pool.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) Driver() string { return c.driver }

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
