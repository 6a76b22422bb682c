package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"weather-api/internal/db"
	"weather-api/internal/migrate"
	"weather-api/internal/modules/weather/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/latest-reading.sql
var latestReadingSQL string

//go:embed sql/recent-readings.sql
var recentReadingsSQL string

//go:embed sql/aggregate-last-n.sql
var aggregateLastNSQL string

// Conn is the storage handle the operations run on. *sql.Conn (a scoped
// connection) and *sql.DB both satisfy it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// InitSchema creates the readings table and its (city, ts) uniqueness
// constraint when absent. Safe to call on every connection.
func InitSchema(ctx context.Context, conn Conn) error {
	if _, err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("%w: init schema: %w", types.ErrStorage, err)
	}
	return nil
}

// InsertReading reports false, without error, when a reading for the same
// (city, ts) already exists.
func InsertReading(ctx context.Context, conn Conn, r types.Reading) (bool, error) {
	if strings.TrimSpace(r.City) == "" {
		return false, fmt.Errorf("%w: reading city is required", types.ErrValidation)
	}
	if strings.TrimSpace(r.Timestamp) == "" {
		return false, fmt.Errorf("%w: reading timestamp is required", types.ErrValidation)
	}

	res, err := conn.ExecContext(ctx, insertReadingSQL, r.City, r.Timestamp, nullable(r.Temperature), nullable(r.Humidity))
	if err != nil {
		return false, fmt.Errorf("%w: insert reading: %w", types.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: insert reading rows affected: %w", types.ErrStorage, err)
	}
	return n == 1, nil
}

// LatestForCity returns nil, nil when the city has no readings.
func LatestForCity(ctx context.Context, conn Conn, city string) (*types.Reading, error) {
	row := conn.QueryRowContext(ctx, latestReadingSQL, city)
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest reading: %w", types.ErrStorage, err)
	}
	return &r, nil
}

// AggregateLastN summarises the n most recent readings for city.
func AggregateLastN(ctx context.Context, conn Conn, city string, n int) (types.Aggregate, error) {
	if n < 1 {
		return types.Aggregate{}, fmt.Errorf("%w: n must be >= 1", types.ErrValidation)
	}

	var avg, lo, hi sql.NullFloat64
	var agg types.Aggregate
	err := conn.QueryRowContext(ctx, aggregateLastNSQL, city, n).Scan(&avg, &lo, &hi, &agg.Count)
	if err != nil {
		return types.Aggregate{}, fmt.Errorf("%w: aggregate readings: %w", types.ErrStorage, err)
	}
	if agg.Count == 0 {
		return types.Aggregate{}, nil
	}
	agg.Average = fromNull(avg)
	agg.Minimum = fromNull(lo)
	agg.Maximum = fromNull(hi)
	return agg, nil
}

// RecentReadings returns up to limit readings for city, newest first.
func RecentReadings(ctx context.Context, conn Conn, city string, limit int) ([]types.Reading, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be >= 1", types.ErrValidation)
	}
	rows, err := conn.QueryContext(ctx, recentReadingsSQL, city, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent readings: %w", types.ErrStorage, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	var out []types.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan reading: %w", types.ErrStorage, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recent readings: %w", types.ErrStorage, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (types.Reading, error) {
	var r types.Reading
	var temperature, humidity sql.NullFloat64
	if err := s.Scan(&r.City, &r.Timestamp, &temperature, &humidity); err != nil {
		return types.Reading{}, err
	}
	r.Temperature = fromNull(temperature)
	r.Humidity = fromNull(humidity)
	return r, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// WeatherRepository hands out request-scoped sessions. Each session owns one
// pooled connection until Close.
type WeatherRepository interface {
	Open(ctx context.Context) (WeatherSession, error)
}

type WeatherSession interface {
	InsertReading(ctx context.Context, r types.Reading) (bool, error)
	LatestForCity(ctx context.Context, city string) (*types.Reading, error)
	AggregateLastN(ctx context.Context, city string, n int) (types.Aggregate, error)
	RecentReadings(ctx context.Context, city string, limit int) ([]types.Reading, error)
	Ping(ctx context.Context) error
	Close() error
}

type repositoryImpl struct {
	pool *sql.DB
}

func NewRepository(pool *sql.DB) WeatherRepository {
	return &repositoryImpl{pool: pool}
}

func (r *repositoryImpl) Open(ctx context.Context) (WeatherSession, error) {
	conn, err := db.Acquire(ctx, r.pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *sql.Conn
}

func (s *session) InsertReading(ctx context.Context, r types.Reading) (bool, error) {
	return InsertReading(ctx, s.conn, r)
}

func (s *session) LatestForCity(ctx context.Context, city string) (*types.Reading, error) {
	return LatestForCity(ctx, s.conn, city)
}

func (s *session) AggregateLastN(ctx context.Context, city string, n int) (types.Aggregate, error) {
	return AggregateLastN(ctx, s.conn, city, n)
}

func (s *session) RecentReadings(ctx context.Context, city string, limit int) ([]types.Reading, error) {
	return RecentReadings(ctx, s.conn, city, limit)
}

func (s *session) Ping(ctx context.Context) error {
	var ok int
	if err := s.conn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("%w: ping: %w", types.ErrStorage, err)
	}
	return nil
}

func (s *session) Close() error {
	return s.conn.Close()
}
