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

// loggingConnector opens sqlite3 connections whose statements are logged
// with their arguments and timing.
type loggingConnector struct {
	dsn    string
	logger *slog.Logger
	slow   time.Duration
	driver *sqlite3.SQLiteDriver
}

type loggingConn struct {
	conn   driver.Conn
	logger *slog.Logger
	slow   time.Duration
}

type loggingStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
	slow   time.Duration
}

// NewLoggingConnector returns a driver.Connector for sql.OpenDB. Every
// statement is logged at debug; statements slower than slow (when > 0) and
// failed statements are logged at warn. A nil logger means slog.Default().
func NewLoggingConnector(dsn string, logger *slog.Logger, slow time.Duration) (driver.Connector, error) {
	if dsn == "" {
		return nil, errors.New("sqlite3-log: empty dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, logger: logger, slow: slow, driver: &sqlite3.SQLiteDriver{}}, nil
}

func (c *loggingConnector) Driver() driver.Driver {
	return loggingDriver{}
}

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, logger: c.logger, slow: c.slow}, nil
}

type loggingDriver struct{}

func (loggingDriver) Open(string) (driver.Conn, error) {
	return nil, fmt.Errorf("sqlite3-log: use sql.OpenDB(NewLoggingConnector(...)) instead of sql.Open")
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}
	if err != nil {
		c.logger.Warn("sql prepare failed", "sql", query, "error", err)
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, logger: c.logger, slow: c.slow}, nil
}

func (c *loggingConn) Close() error {
	return c.conn.Close()
}

func (c *loggingConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.logger.Debug("sql", "op", "begin")
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

// ExecContext lets multi-statement scripts (migrations) reach the driver in
// one call; a prepared statement only runs the first statement.
func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := execer.ExecContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		return nil, err
	}
	observe(c.logger, c.slow, "exec", query, namedValuesToSlice(args), start, err)
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := queryer.QueryContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		return nil, err
	}
	observe(c.logger, c.slow, "query", query, namedValuesToSlice(args), start, err)
	return rows, err
}

// ResetSession keeps database/sql from discarding pooled connections.
func (c *loggingConn) ResetSession(ctx context.Context) error {
	if r, ok := c.conn.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtExecContext
	res, err := s.stmt.Exec(args)
	s.observe("exec", valuesToSlice(args), start, err)
	return res, err
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		res, err = execCtx.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtExecContext
		res, err = s.stmt.Exec(namedValuesToValues(args))
	}
	s.observe("exec", namedValuesToSlice(args), start, err)
	return res, err
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtQueryContext
	rows, err := s.stmt.Query(args)
	s.observe("query", valuesToSlice(args), start, err)
	return rows, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryCtx.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtQueryContext
		rows, err = s.stmt.Query(namedValuesToValues(args))
	}
	s.observe("query", namedValuesToSlice(args), start, err)
	return rows, err
}

func (s *loggingStmt) Close() error {
	return s.stmt.Close()
}

func (s *loggingStmt) NumInput() int {
	return s.stmt.NumInput()
}

func (s *loggingStmt) observe(op string, args []any, start time.Time, err error) {
	observe(s.logger, s.slow, op, s.query, args, start, err)
}

func observe(logger *slog.Logger, slow time.Duration, op, query string, args []any, start time.Time, err error) {
	elapsed := time.Since(start)
	attrs := []any{
		"op", op,
		"sql", query,
		"args", args,
		"duration_ms", elapsed.Milliseconds(),
	}
	switch {
	case err != nil:
		logger.Warn("sql failed", append(attrs, "error", err)...)
	case slow > 0 && elapsed >= slow:
		logger.Warn("sql slow", attrs...)
	default:
		logger.Debug("sql", attrs...)
	}
}

func namedValuesToSlice(args []driver.NamedValue) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a.Name != "" {
			out[i] = a.Name + "=" + formatArg(a.Value)
		} else {
			out[i] = formatArg(a.Value)
		}
	}
	return out
}

func valuesToSlice(args []driver.Value) []any {
	out := make([]any, len(args))
	for i, v := range args {
		out[i] = formatArg(v)
	}
	return out
}

func namedValuesToValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArg(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
