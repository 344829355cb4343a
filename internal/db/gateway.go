package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConnection is returned when a statement is issued without an open pool.
var ErrConnection = errors.New("database connection is not initialized")

// QueryError wraps a driver error together with the operation that failed.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn executes parameterized statements against either the pool or an
// open transaction. Every failure comes back as *QueryError.
type Conn struct {
	q querier
}

// Exec runs a statement and returns the number of affected rows.
func (c Conn) Exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	if c.q == nil {
		return 0, ErrConnection
	}
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// Insert runs an INSERT and returns the new row id.
func (c Conn) Insert(ctx context.Context, op, query string, args ...any) (int64, error) {
	if c.q == nil {
		return 0, ErrConnection
	}
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrap(op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// Query runs a statement and calls scan once per row. Rows are closed
// before Query returns, so scan must not issue statements of its own.
func (c Conn) Query(ctx context.Context, op, query string, scan func(*sql.Rows) error, args ...any) error {
	if c.q == nil {
		return ErrConnection
	}
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return wrap(op, err)
		}
	}
	return wrap(op, rows.Err())
}

// Get scans a single row into dest. found is false when no row matched.
func (c Conn) Get(ctx context.Context, op, query string, dest []any, args ...any) (found bool, err error) {
	if c.q == nil {
		return false, ErrConnection
	}
	err = c.q.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(op, err)
	}
	return true, nil
}

// Gateway is the only holder of the database pool. Reads go straight to the
// pool; multi-statement writes go through Tx, which serializes them on the
// write worker.
type Gateway struct {
	Conn
	db     *sql.DB
	writer *Worker
	logger *zap.Logger
}

func NewGateway(conn *sql.DB, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{db: conn, logger: logger}
	if conn != nil {
		g.Conn = Conn{q: conn}
		g.writer = NewWorker(conn, logger)
	}
	return g
}

// DB exposes the pool for health checks and tests.
func (g *Gateway) DB() *sql.DB { return g.db }

// Close stops the write worker. The pool itself belongs to the caller.
func (g *Gateway) Close() {
	if g.writer != nil {
		g.writer.Close()
	}
}

// Tx runs fn in a transaction: begin, fn, commit. Any error from fn rolls
// the transaction back and is returned as-is.
func (g *Gateway) Tx(ctx context.Context, fn func(ctx context.Context, tx Conn) error) error {
	if g == nil || g.writer == nil {
		return ErrConnection
	}
	return g.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, Conn{q: tx})
	})
}

// Ping reports whether the pool is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil || g.db == nil {
		return ErrConnection
	}
	return wrap("ping", g.db.PingContext(ctx))
}
