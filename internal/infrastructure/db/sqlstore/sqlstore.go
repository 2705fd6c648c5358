// Package sqlstore implements the user and file repositories on top of
// database/sql, for PostgreSQL (pgx) and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

const defaultTimeout = 5 * time.Second

// Dialect selects the SQL flavour.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func (d Dialect) driverName() (string, error) {
	switch d {
	case Postgres:
		return "pgx", nil
	case MySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", d)
	}
}

// Config captures the settings for opening the relational store.
type Config struct {
	Dialect Dialect
	DSN     string
	Timeout time.Duration
}

// Open connects and pings the database. MySQL DSNs get parseTime=true so
// DATETIME columns scan into time.Time, and clientFoundRows so UPDATE
// reports matched rows.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver, err := cfg.Dialect.driverName()
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if cfg.Dialect == MySQL {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.ClientFoundRows = true
		dsn = mc.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations for the dialect.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := d.driverName(); err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(string(d)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/"+string(d)); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// rebind turns "?" placeholders into "$n" for PostgreSQL.
func rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

// insertID runs an INSERT and returns the generated id. PostgreSQL uses
// RETURNING, MySQL reports it through LastInsertId.
func insertID(ctx context.Context, db *sql.DB, d Dialect, query string, args ...any) (string, error) {
	if d == Postgres {
		var id int64
		if err := db.QueryRowContext(ctx, rebind(d, query+" RETURNING id"), args...).Scan(&id); err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 10), nil
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}
