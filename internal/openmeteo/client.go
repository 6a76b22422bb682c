package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"weather-api/internal/modules/weather/types"
)

const (
	forecastPath = "/v1/forecast"
	hourlyFields = "temperature_2m,relativehumidity_2m"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 4 << 20
)

// Client fetches current conditions from the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

type Options struct {
	// BaseURL is scheme and host, no path.
	BaseURL string
	Timeout time.Duration
	// BreakerFailures consecutive failures open the circuit for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Logger          *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base url %q is not absolute", opts.BaseURL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
	if opts.BreakerFailures > 0 {
		cooldown := opts.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "open-meteo",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: countsAsSuccess,
		})
	}
	return c, nil
}

// FetchCurrent returns the current reading at (lat, lon) labelled with
// city. Every failure wraps types.ErrUpstream; nothing is retried.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64, city string) (types.Reading, error) {
	start := time.Now()

	reading, err := c.call(ctx, lat, lon, city)
	if err != nil {
		outcome := outcomeOf(err)
		observeUpstream(outcome, start)
		c.logger.Warn("upstream fetch failed", "city", city, "outcome", outcome, "error", err)
		if errors.Is(err, types.ErrUpstream) {
			return types.Reading{}, err
		}
		return types.Reading{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}

	observeUpstream(outcomeOK, start)
	c.logger.Debug("upstream fetch ok", "city", city, "ts", reading.Timestamp)
	return reading, nil
}

// call runs one fetch-and-parse through the breaker, so a provider that
// answers 200 with an unusable body counts as failing too.
func (c *Client) call(ctx context.Context, lat, lon float64, city string) (types.Reading, error) {
	if c.breaker == nil {
		return c.fetchReading(ctx, lat, lon, city)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchReading(ctx, lat, lon, city)
	})
	if err != nil {
		return types.Reading{}, err
	}
	return res.(types.Reading), nil
}

func (c *Client) fetchReading(ctx context.Context, lat, lon float64, city string) (types.Reading, error) {
	body, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return types.Reading{}, err
	}
	reading, err := parseForecast(body, city)
	if err != nil {
		return types.Reading{}, &decodeError{err: err}
	}
	return reading, nil
}

// countsAsSuccess keeps failures the caller caused, by cancelling or
// timing out its own context, out of the breaker's failure counts.
func countsAsSuccess(err error) bool {
	var ce *callerError
	return err == nil || errors.As(err, &ce)
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) ([]byte, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", hourlyFields)
	q.Set("current_weather", "true")
	endpoint := c.baseURL + forecastPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &callerError{err: ctxErr}
		}
		return nil, &transportError{err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("close upstream body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &callerError{err: ctxErr}
		}
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}
	return body, nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return fmt.Sprintf("%s: transport: %v", types.ErrUpstream, e.err) }
func (e *transportError) Unwrap() []error { return []error{types.ErrUpstream, e.err} }

// callerError means the caller's context ended before the upstream answered.
type callerError struct{ err error }

func (e *callerError) Error() string { return fmt.Sprintf("%s: request abandoned: %v", types.ErrUpstream, e.err) }
func (e *callerError) Unwrap() []error { return []error{types.ErrUpstream, e.err} }

// decodeError wraps a parse failure, which already carries types.ErrUpstream.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", types.ErrUpstream, e.code, e.body)
}
func (e *statusError) Unwrap() error { return types.ErrUpstream }

func outcomeOf(err error) string {
	var te *transportError
	var se *statusError
	var ce *callerError
	var de *decodeError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return outcomeCircuitOpen
	case errors.As(err, &ce):
		return outcomeCanceled
	case errors.As(err, &de):
		return outcomeDecode
	case errors.As(err, &se):
		return outcomeBadStatus
	case errors.As(err, &te):
		return outcomeTransport
	default:
		return outcomeTransport
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
