package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weather-api/internal/modules/weather/types"
)

type mockService struct {
	latest    types.Reading
	latestErr error
	agg       types.Aggregate
	aggErr    error
	ingest    types.IngestResult
	ingestErr error
	recent    []types.Reading
	recentErr error

	calls     int
	gotCity   string
	gotN      int
	gotLimit  int
	gotIngest types.FetchRequest
}

func (m *mockService) Latest(ctx context.Context, city string) (types.Reading, error) {
	m.calls++
	m.gotCity = city
	return m.latest, m.latestErr
}

func (m *mockService) Stats(ctx context.Context, city string, n int) (types.Aggregate, error) {
	m.calls++
	m.gotCity, m.gotN = city, n
	return m.agg, m.aggErr
}

func (m *mockService) Ingest(ctx context.Context, req types.FetchRequest) (types.IngestResult, error) {
	m.calls++
	m.gotIngest = req
	return m.ingest, m.ingestErr
}

func (m *mockService) Export(ctx context.Context, city string, limit int) ([]types.Reading, error) {
	m.calls++
	m.gotCity, m.gotLimit = city, limit
	return m.recent, m.recentErr
}

func newController(m *mockService) *weatherControllerImpl {
	return NewWeatherController(m, nil).(*weatherControllerImpl)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func Test_handleLatest(t *testing.T) {
	t.Run("blank city is 422 without service call", func(t *testing.T) {
		for _, target := range []string{"/weather/latest", "/weather/latest?city=", "/weather/latest?city=%20%20"} {
			m := &mockService{}
			rec := httptest.NewRecorder()
			newController(m).handleLatest(rec, httptest.NewRequest(http.MethodGet, target, nil))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("%s: status = %d; want %d", target, rec.Code, http.StatusUnprocessableEntity)
			}
			if m.calls != 0 {
				t.Errorf("%s: service calls = %d; want 0", target, m.calls)
			}
		}
	})

	t.Run("returns reading", func(t *testing.T) {
		m := &mockService{latest: types.Reading{City: "London", Timestamp: "2024-05-01T12:00:00Z", Temperature: types.Float(15.2)}}
		rec := httptest.NewRecorder()
		newController(m).handleLatest(rec, httptest.NewRequest(http.MethodGet, "/weather/latest?city=%20London", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if m.gotCity != "London" {
			t.Errorf("city = %q; want London", m.gotCity)
		}
		body := decodeBody[map[string]any](t, rec)
		if body["city"] != "London" || body["ts"] != "2024-05-01T12:00:00Z" || body["temperature"] != 15.2 {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["humidity"]; ok {
			t.Errorf("humidity should be absent; body = %v", body)
		}
	})

	t.Run("maps error kinds", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{name: "not found", err: fmt.Errorf("%w: no readings", types.ErrNotFound), want: http.StatusNotFound},
			{name: "storage", err: fmt.Errorf("%w: database is locked", types.ErrStorage), want: http.StatusInternalServerError},
			{name: "validation", err: fmt.Errorf("%w: city is required", types.ErrValidation), want: http.StatusUnprocessableEntity},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				newController(&mockService{latestErr: tt.err}).handleLatest(rec, httptest.NewRequest(http.MethodGet, "/weather/latest?city=London", nil))

				if rec.Code != tt.want {
					t.Errorf("status = %d; want %d", rec.Code, tt.want)
				}
				body := decodeBody[map[string]any](t, rec)
				if body["error"] != http.StatusText(tt.want) {
					t.Errorf("error = %v; want %q", body["error"], http.StatusText(tt.want))
				}
			})
		}
	})

	t.Run("storage details are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m := &mockService{latestErr: fmt.Errorf("%w: open /srv/data/weather.db", types.ErrStorage)}
		newController(m).handleLatest(rec, httptest.NewRequest(http.MethodGet, "/weather/latest?city=London", nil))

		if strings.Contains(rec.Body.String(), "/srv/data") {
			t.Errorf("body leaks storage detail: %q", rec.Body.String())
		}
	})
}

func Test_handleStats(t *testing.T) {
	t.Run("default n is 24", func(t *testing.T) {
		m := &mockService{agg: types.Aggregate{Average: types.Float(25), Minimum: types.Float(20), Maximum: types.Float(30), Count: 2}}
		rec := httptest.NewRecorder()
		newController(m).handleStats(rec, httptest.NewRequest(http.MethodGet, "/weather/stats?city=London", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if m.gotN != 24 {
			t.Errorf("n = %d; want 24", m.gotN)
		}
		body := decodeBody[map[string]any](t, rec)
		if body["avg"] != 25.0 || body["min"] != 20.0 || body["max"] != 30.0 || body["count"] != 2.0 {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("n out of range or malformed is 422", func(t *testing.T) {
		for _, n := range []string{"0", "1001", "-3", "abc", "2.5"} {
			m := &mockService{}
			rec := httptest.NewRecorder()
			newController(m).handleStats(rec, httptest.NewRequest(http.MethodGet, "/weather/stats?city=London&n="+n, nil))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("n=%s: status = %d; want %d", n, rec.Code, http.StatusUnprocessableEntity)
			}
			if m.calls != 0 {
				t.Errorf("n=%s: service calls = %d; want 0", n, m.calls)
			}
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		for _, n := range []string{"1", "1000"} {
			m := &mockService{agg: types.Aggregate{Count: 1}}
			rec := httptest.NewRecorder()
			newController(m).handleStats(rec, httptest.NewRequest(http.MethodGet, "/weather/stats?city=London&n="+n, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("n=%s: status = %d; want %d", n, rec.Code, http.StatusOK)
			}
		}
	})

	t.Run("zero count is 404", func(t *testing.T) {
		m := &mockService{aggErr: fmt.Errorf("%w: no readings for city %q", types.ErrNotFound, "Nowhere")}
		rec := httptest.NewRecorder()
		newController(m).handleStats(rec, httptest.NewRequest(http.MethodGet, "/weather/stats?city=Nowhere", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_handleFetch(t *testing.T) {
	post := func(c *weatherControllerImpl, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/weather/fetch", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		c.handleFetch(rec, req)
		return rec
	}

	t.Run("ingests and returns result", func(t *testing.T) {
		reading := types.Reading{City: "London", Timestamp: "2024-05-01T12:00:00Z", Temperature: types.Float(15.2), Humidity: types.Float(80)}
		m := &mockService{ingest: types.IngestResult{Inserted: true, Reading: reading}}

		rec := post(newController(m), `{"city":"London","lat":51.5074,"lon":-0.1278}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
		}
		want := types.FetchRequest{City: "London", Latitude: 51.5074, Longitude: -0.1278}
		if m.gotIngest != want {
			t.Errorf("ingest = %+v; want %+v", m.gotIngest, want)
		}
		got := decodeBody[types.IngestResult](t, rec)
		if !got.Inserted || got.Skipped || got.Reading.Timestamp != reading.Timestamp || *got.Reading.Humidity != 80 {
			t.Errorf("result = %+v", got)
		}
	})

	t.Run("zero coordinates are valid", func(t *testing.T) {
		m := &mockService{}
		rec := post(newController(m), `{"city":"Null Island","lat":0,"lon":0}`)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d; want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("extra keys are ignored", func(t *testing.T) {
		m := &mockService{}
		rec := post(newController(m), `{"city":"London","lat":51.5074,"lon":-0.1278,"country":"UK"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
		}
		if m.calls != 1 || m.gotIngest.City != "London" {
			t.Errorf("calls = %d ingest = %+v; want one call for London", m.calls, m.gotIngest)
		}
	})

	t.Run("invalid bodies are 422 without service call", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			msg  string
		}{
			{name: "blank city", body: `{"city":"  ","lat":1,"lon":2}`, msg: "'city' is required"},
			{name: "missing lat", body: `{"city":"London","lon":2}`, msg: "'lat' is required"},
			{name: "lat too large", body: `{"city":"London","lat":91,"lon":2}`, msg: "'lat' must be <= 90"},
			{name: "lon too small", body: `{"city":"London","lat":1,"lon":-181}`, msg: "'lon' must be >= -180"},
			{name: "malformed", body: `{"city":`, msg: "invalid JSON"},
			{name: "empty", body: ``, msg: "empty"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m := &mockService{}
				rec := post(newController(m), tt.body)

				if rec.Code != http.StatusUnprocessableEntity {
					t.Errorf("status = %d; want %d", rec.Code, http.StatusUnprocessableEntity)
				}
				if m.calls != 0 {
					t.Errorf("service calls = %d; want 0", m.calls)
				}
				if !strings.Contains(rec.Body.String(), tt.msg) {
					t.Errorf("body = %q; want containing %q", rec.Body.String(), tt.msg)
				}
			})
		}
	})

	t.Run("upstream failure is 502", func(t *testing.T) {
		m := &mockService{ingestErr: fmt.Errorf("%w: status 503", types.ErrUpstream)}
		rec := post(newController(m), `{"city":"London","lat":51.5,"lon":-0.1}`)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusBadGateway)
		}
	})

	t.Run("storage failure is 500", func(t *testing.T) {
		m := &mockService{ingestErr: fmt.Errorf("%w: insert reading: disk full", types.ErrStorage)}
		rec := post(newController(m), `{"city":"London","lat":51.5,"lon":-0.1}`)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func Test_handleExport(t *testing.T) {
	t.Run("writes csv", func(t *testing.T) {
		m := &mockService{recent: []types.Reading{
			{City: "London", Timestamp: "2024-05-01T13:00:00Z", Temperature: types.Float(16), Humidity: types.Float(78)},
			{City: "London", Timestamp: "2024-05-01T12:00:00Z", Temperature: types.Float(15.2)},
		}}
		rec := httptest.NewRecorder()
		newController(m).handleExport(rec, httptest.NewRequest(http.MethodGet, "/weather/export?city=London&limit=2", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
			t.Errorf("Content-Type = %q; want text/csv", ct)
		}
		if m.gotLimit != 2 {
			t.Errorf("limit = %d; want 2", m.gotLimit)
		}
		want := "timestamp,temperature,humidity\n2024-05-01T13:00:00Z,16,78\n2024-05-01T12:00:00Z,15.2,\n"
		if rec.Body.String() != want {
			t.Errorf("body = %q; want %q", rec.Body.String(), want)
		}
	})

	t.Run("default limit is 100", func(t *testing.T) {
		m := &mockService{recent: []types.Reading{{Timestamp: "2024-05-01T12:00:00Z"}}}
		rec := httptest.NewRecorder()
		newController(m).handleExport(rec, httptest.NewRequest(http.MethodGet, "/weather/export?city=London", nil))

		if m.gotLimit != 100 {
			t.Errorf("limit = %d; want 100", m.gotLimit)
		}
	})

	t.Run("bad limit is 422", func(t *testing.T) {
		m := &mockService{}
		rec := httptest.NewRecorder()
		newController(m).handleExport(rec, httptest.NewRequest(http.MethodGet, "/weather/export?city=London&limit=5000", nil))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("unknown city is 404", func(t *testing.T) {
		m := &mockService{recentErr: fmt.Errorf("%w: no readings", types.ErrNotFound)}
		rec := httptest.NewRecorder()
		newController(m).handleExport(rec, httptest.NewRequest(http.MethodGet, "/weather/export?city=Atlantis", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewWeatherController(&mockService{}, nil).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather/fetch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /weather/fetch status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather/latest?city=London", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /weather/latest status = %d; want %d", rec.Code, http.StatusOK)
	}
}
