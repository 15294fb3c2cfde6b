// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB and TiDB.
//
// Public entry points:
//
//	Open(ctx, opts)      – pool with ping, retries disabled.
//	WithPassword(dsn, p) – injects a Vault-sourced password into a DSN.
//	Migrate(ctx, db)     – applies embedded goose migrations.
//
// Open pings before returning so callers can fail fast during bootstrap.
// Callers should Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options tunes the pool.  Zero values fall back to 15 open, 5 idle, and a
// 30-minute lifetime.
type Options struct {
	DSN             string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// Open returns a *sqlx.DB configured from opts.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	dsn, err := WithPassword(opts.DSN, opts.Password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(orDefault(opts.MaxOpenConns, 15))
	db.SetMaxIdleConns(orDefault(opts.MaxIdleConns, 5))
	lifetime := opts.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(lifetime)

	timeout := opts.PingTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// WithPassword parses dsn, sets the password when one is supplied, and
// forces parseTime so DATETIME columns scan into time.Time.
func WithPassword(dsn, password string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
