package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"weather-api/internal/modules/weather/repository"
	"weather-api/internal/modules/weather/types"
)

// Fetcher is the upstream provider adapter.
type Fetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64, city string) (types.Reading, error)
}

// ReadingPublisher is notified of every newly stored reading.
type ReadingPublisher interface {
	PublishReading(ctx context.Context, r types.Reading) error
}

const publishTimeout = 2 * time.Second

type Service struct {
	repository repository.WeatherRepository
	fetcher    Fetcher
	publisher  ReadingPublisher
	logger     *slog.Logger
}

// NewService wires the weather use cases. publisher may be nil.
func NewService(repo repository.WeatherRepository, fetcher Fetcher, publisher ReadingPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository: repo,
		fetcher:    fetcher,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *Service) Latest(ctx context.Context, city string) (types.Reading, error) {
	city, err := normalizeCity(city)
	if err != nil {
		return types.Reading{}, err
	}

	var latest *types.Reading
	err = s.withSession(ctx, func(sess repository.WeatherSession) error {
		var err error
		latest, err = sess.LatestForCity(ctx, city)
		return err
	})
	if err != nil {
		return types.Reading{}, err
	}
	if latest == nil {
		return types.Reading{}, fmt.Errorf("%w: no readings for city %q", types.ErrNotFound, city)
	}
	return *latest, nil
}

func (s *Service) Stats(ctx context.Context, city string, n int) (types.Aggregate, error) {
	city, err := normalizeCity(city)
	if err != nil {
		return types.Aggregate{}, err
	}

	var agg types.Aggregate
	err = s.withSession(ctx, func(sess repository.WeatherSession) error {
		var err error
		agg, err = sess.AggregateLastN(ctx, city, n)
		return err
	})
	if err != nil {
		return types.Aggregate{}, err
	}
	if agg.Count == 0 {
		return types.Aggregate{}, fmt.Errorf("%w: no readings for city %q", types.ErrNotFound, city)
	}
	return agg, nil
}

// Ingest fetches the current reading and stores it. The upstream call
// happens before a storage connection is taken. A reading that fails to
// store is dropped.
func (s *Service) Ingest(ctx context.Context, req types.FetchRequest) (types.IngestResult, error) {
	city, err := normalizeCity(req.City)
	if err != nil {
		return types.IngestResult{}, err
	}

	reading, err := s.fetcher.FetchCurrent(ctx, req.Latitude, req.Longitude, city)
	if err != nil {
		return types.IngestResult{}, err
	}

	var inserted bool
	err = s.withSession(ctx, func(sess repository.WeatherSession) error {
		var err error
		inserted, err = sess.InsertReading(ctx, reading)
		return err
	})
	if err != nil {
		s.logger.Error("store fetched reading", "city", city, "ts", reading.Timestamp, "error", err)
		return types.IngestResult{}, err
	}

	observeIngest(inserted)
	if inserted {
		s.publish(ctx, reading)
	} else {
		s.logger.Debug("reading already stored", "city", city, "ts", reading.Timestamp)
	}

	return types.IngestResult{
		Inserted: inserted,
		Skipped:  !inserted,
		Reading:  reading,
	}, nil
}

// Export returns up to limit readings, newest first.
func (s *Service) Export(ctx context.Context, city string, limit int) ([]types.Reading, error) {
	city, err := normalizeCity(city)
	if err != nil {
		return nil, err
	}

	var readings []types.Reading
	err = s.withSession(ctx, func(sess repository.WeatherSession) error {
		var err error
		readings, err = sess.RecentReadings(ctx, city, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no readings for city %q", types.ErrNotFound, city)
	}
	return readings, nil
}

// Ready checks that a storage connection can be acquired and used.
func (s *Service) Ready(ctx context.Context) error {
	return s.withSession(ctx, func(sess repository.WeatherSession) error {
		return sess.Ping(ctx)
	})
}

// withSession runs fn on one scoped storage connection and releases it on
// every path.
func (s *Service) withSession(ctx context.Context, fn func(repository.WeatherSession) error) error {
	sess, err := s.repository.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.logger.Error("release storage connection", "error", err)
		}
	}()
	return fn(sess)
}

func (s *Service) publish(ctx context.Context, r types.Reading) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishReading(ctx, r); err != nil {
		s.logger.Warn("publish reading", "city", r.City, "ts", r.Timestamp, "error", err)
	}
}

func normalizeCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("%w: city is required", types.ErrValidation)
	}
	return city, nil
}
