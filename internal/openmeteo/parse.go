package openmeteo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"weather-api/internal/modules/weather/types"
)

type forecastResponse struct {
	UTCOffsetSeconds int             `json:"utc_offset_seconds"`
	CurrentWeather   *currentWeather `json:"current_weather"`
	Hourly           hourly          `json:"hourly"`
}

type currentWeather struct {
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
}

type hourly struct {
	RelativeHumidityLegacy []*float64 `json:"relativehumidity_2m"`
	RelativeHumidity       []*float64 `json:"relative_humidity_2m"`
}

// Local layouts the provider uses for current_weather.time when no
// timeformat is requested.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

func parseForecast(body []byte, city string) (types.Reading, error) {
	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return types.Reading{}, fmt.Errorf("%w: decode response: %w", types.ErrUpstream, err)
	}
	if fr.CurrentWeather == nil {
		return types.Reading{}, fmt.Errorf("%w: response has no current_weather", types.ErrUpstream)
	}

	ts, err := normalizeTime(fr.CurrentWeather.Time, fr.UTCOffsetSeconds)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}

	return types.Reading{
		City:        city,
		Timestamp:   ts,
		Temperature: fr.CurrentWeather.Temperature,
		Humidity:    firstHumidity(fr.Hourly),
	}, nil
}

func firstHumidity(h hourly) *float64 {
	series := h.RelativeHumidityLegacy
	if len(series) == 0 {
		series = h.RelativeHumidity
	}
	if len(series) == 0 {
		return nil
	}
	return series[0]
}

// normalizeTime converts the provider's time, expressed at utcOffset
// seconds east of UTC unless it carries its own zone, to the canonical
// storage form.
func normalizeTime(s string, utcOffset int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("current_weather.time is missing")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return types.FormatTimestamp(t), nil
	}
	loc := time.FixedZone("", utcOffset)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return types.FormatTimestamp(t), nil
		}
	}
	return "", fmt.Errorf("unrecognised current_weather.time %q", s)
}
