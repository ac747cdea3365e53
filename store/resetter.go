// Package store gives the server under test a freshly built database for every run.
//
// A Resetter drops the test schema, replays the server's own schema script with the
// canonical schema name rewritten to the test name, and leaves the pinned connection on
// the test schema. Statements the engine rejects are reported, not fatal: a schema script
// written for a long-lived database commonly contains statements that fail harmlessly on
// a fresh one.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Schema names the canonical schema used by the script and the schema the tests run against.
type Schema struct {
	Canonical string
	Test      string
}

// Report describes the outcome of a reset.
type Report struct {
	Executed int
	Failed   []*SchemaStatementError
}

// OK is true if every statement of the script was accepted.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

type Resetter struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect dialect
	driver  string
	schema  Schema
	logger  *zap.SugaredLogger
}

// Open connects to the engine and checks that it answers. Failure to connect is returned
// as a *StoreUnavailableError. If driver is empty, settings.Driver is used, then MySQL.
func Open(ctx context.Context, driver string, settings Settings, schema Schema,
	logger *zap.SugaredLogger) (*Resetter, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if driver == "" {
		driver = settings.Driver
	}
	if driver == "" {
		driver = DriverMySQL
	}
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if schema.Test == "" {
		return nil, errors.New("test schema name is required")
	}
	dsn, err := d.dsn(settings)
	if err != nil {
		return nil, &StoreUnavailableError{Driver: driver, Err: err}
	}
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, &StoreUnavailableError{Driver: driver, Err: err}
	}
	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
	}
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		_ = db.Close()
		return nil, &StoreUnavailableError{Driver: driver, Err: err}
	}
	return &Resetter{db: db, conn: conn, dialect: d, driver: driver, schema: schema, logger: logger}, nil
}

// Reset rebuilds the test schema from the script at scriptPath. The returned error is only
// for failures that leave the store unusable; rejected statements are in the report.
func (r *Resetter) Reset(ctx context.Context, scriptPath string) (Report, error) {
	var report Report
	f, err := os.Open(scriptPath)
	if err != nil {
		return report, fmt.Errorf("opening schema script: %w", err)
	}
	statements, err := SplitStatements(f)
	f.Close()
	if err != nil {
		return report, fmt.Errorf("reading schema script: %w", err)
	}

	if err := r.dialect.dropSchema(ctx, r.conn, r.schema.Test); err != nil {
		return report, &StoreUnavailableError{Driver: r.driver, Err: fmt.Errorf("dropping %s: %w", r.schema.Test, err)}
	}
	r.logger.Infof("Executing schema script %s (%d statements)", scriptPath, len(statements))
	for i, stmt := range statements {
		stmt = RenameSchema(stmt, r.schema.Canonical, r.schema.Test)
		if _, err := r.conn.ExecContext(ctx, stmt); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			se := &SchemaStatementError{Index: i + 1, Statement: strings.TrimSpace(stmt), Err: err}
			report.Failed = append(report.Failed, se)
			r.logger.Warnw("Schema statement failed", "index", se.Index, "statement", se.Statement, "error", err)
			continue
		}
		report.Executed++
	}
	if err := r.dialect.useSchema(ctx, r.conn, r.schema.Test); err != nil {
		return report, fmt.Errorf("selecting schema %s: %w", r.schema.Test, err)
	}
	return report, nil
}

// Verify checks that every table exists in the test schema and can be queried.
func (r *Resetter) Verify(ctx context.Context, tables []string) error {
	for _, t := range tables {
		var n int64
		if err := r.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return fmt.Errorf("table %s is not usable after reset: %w", t, err)
		}
		r.logger.Debugf("Table %s has %d row(s)", t, n)
	}
	return nil
}

// Conn returns the connection that the reset ran on, with the test schema selected.
func (r *Resetter) Conn() *sql.Conn {
	return r.conn
}

func (r *Resetter) Close() error {
	return errors.Join(r.conn.Close(), r.db.Close())
}
