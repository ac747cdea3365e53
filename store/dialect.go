package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dialect holds what differs between engines: how to connect without a schema selected,
// how to discard the test schema, and how to make it the connection's default.
type dialect interface {
	driverName() string
	dsn(s Settings) (string, error)
	dropSchema(ctx context.Context, conn *sql.Conn, schema string) error
	useSchema(ctx context.Context, conn *sql.Conn, schema string) error
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverMySQL, "":
		return mysqlDialect{}, nil
	case DriverPostgres, "pgx":
		return postgresDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) driverName() string { return "mysql" }

// The connection deliberately names no database, since the test database may not exist yet.
func (mysqlDialect) dsn(s Settings) (string, error) {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(port))
	cfg.AllowNativePasswords = true
	return cfg.FormatDSN(), nil
}

func (mysqlDialect) dropSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	if _, err := conn.ExecContext(ctx, "SET sql_notes = 0"); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoteMySQL(schema))
	return err
}

func (mysqlDialect) useSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	_, err := conn.ExecContext(ctx, "USE "+quoteMySQL(schema))
	return err
}

func quoteMySQL(name string) string {
	return "`" + name + "`"
}

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "pgx" }

// Postgres always connects to a database; the test schema lives inside it.
func (postgresDialect) dsn(s Settings) (string, error) {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(port)),
		Path:   "/" + s.Database,
	}
	return u.String(), nil
}

func (postgresDialect) dropSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	_, err := conn.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+quotePostgres(schema)+" CASCADE")
	return err
}

func (postgresDialect) useSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	_, err := conn.ExecContext(ctx, "SET search_path TO "+quotePostgres(schema))
	return err
}

func quotePostgres(name string) string {
	return `"` + name + `"`
}

type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite" }

// A SQLite file is the whole store, so Database is its path.
func (sqliteDialect) dsn(s Settings) (string, error) {
	if s.Database == "" {
		return "", fmt.Errorf("sqlite store needs a database file path")
	}
	return s.Database, nil
}

// SQLite has no schemas to drop, so every table in the file is dropped instead.
func (sqliteDialect) dropSchema(ctx context.Context, conn *sql.Conn, _ string) error {
	rows, err := conn.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+quotePostgres(t)); err != nil {
			return err
		}
	}
	_, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	return err
}

func (sqliteDialect) useSchema(context.Context, *sql.Conn, string) error {
	return nil
}
