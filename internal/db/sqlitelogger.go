package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var errNoContext = errors.New("sqlite3-log: underlying driver lacks context support")

// loggingConnector opens sqlite3 connections that log every statement at
// debug level. Use it with sql.OpenDB.
type loggingConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
	logger *slog.Logger
}

// NewLoggingConnector returns a connector for dsn. A nil logger means
// slog.Default().
func NewLoggingConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, driver: &sqlite3.SQLiteDriver{}, logger: logger.With("component", "sql")}
}

func (c *loggingConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{Conn: conn, logger: c.logger}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return c.driver }

// loggingConn forwards to the sqlite3 connection. Exec and Query go straight
// to the connection so multi-statement scripts run in full.
type loggingConn struct {
	driver.Conn
	logger *slog.Logger
}

func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ex, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, errNoContext
	}
	start := time.Now()
	res, err := ex.ExecContext(ctx, query, args)
	logStatement(ctx, c.logger, "exec", query, args, start, err)
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, errNoContext
	}
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args)
	logStatement(ctx, c.logger, "query", query, args, start, err)
	return rows, err
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	p, ok := c.Conn.(driver.ConnPrepareContext)
	if !ok {
		return nil, errNoContext
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	b, ok := c.Conn.(driver.ConnBeginTx)
	if !ok {
		return nil, errNoContext
	}
	return b.BeginTx(ctx, opts)
}

func (c *loggingConn) Ping(ctx context.Context) error {
	if p, ok := c.Conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// loggingStmt logs prepared statements when they run.
type loggingStmt struct {
	driver.Stmt
	query  string
	logger *slog.Logger
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	ex, ok := s.Stmt.(driver.StmtExecContext)
	if !ok {
		return nil, errNoContext
	}
	start := time.Now()
	res, err := ex.ExecContext(ctx, args)
	logStatement(ctx, s.logger, "exec", s.query, args, start, err)
	return res, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := s.Stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, errNoContext
	}
	start := time.Now()
	rows, err := q.QueryContext(ctx, args)
	logStatement(ctx, s.logger, "query", s.query, args, start, err)
	return rows, err
}

func logStatement(ctx context.Context, logger *slog.Logger, op, query string, args []driver.NamedValue, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", query,
		"args", formatArgs(args),
		"duration", time.Since(start),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.DebugContext(ctx, "sql", attrs...)
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		v := "NULL"
		switch t := a.Value.(type) {
		case nil:
		case []byte:
			v = string(t)
		default:
			v = fmt.Sprint(t)
		}
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}
