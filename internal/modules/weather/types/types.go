package types

import "time"

// TimestampLayout is the canonical storage form: fixed-width UTC, so text
// ordering in sqlite matches chronological ordering.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Reading is one observation. Absent measurements are nil.
type Reading struct {
	City        string   `json:"city"`
	Timestamp   string   `json:"ts"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// Aggregate summarises the most recent readings for a city. Count is the
// number of rows considered; the numeric fields cover non-null
// temperatures only and are nil when there are none.
type Aggregate struct {
	Average *float64 `json:"avg,omitempty"`
	Minimum *float64 `json:"min,omitempty"`
	Maximum *float64 `json:"max,omitempty"`
	Count   int      `json:"count"`
}

type FetchRequest struct {
	City      string
	Latitude  float64
	Longitude float64
}

type IngestResult struct {
	Inserted bool    `json:"inserted"`
	Skipped  bool    `json:"skipped"`
	Reading  Reading `json:"reading"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func Float(v float64) *float64 {
	return &v
}
