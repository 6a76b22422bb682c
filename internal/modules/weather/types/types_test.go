package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	in := time.Date(2024, 6, 1, 14, 30, 5, 999, loc)

	got := FormatTimestamp(in)
	if got != "2024-06-01T12:30:05Z" {
		t.Fatalf("FormatTimestamp = %q; want 2024-06-01T12:30:05Z", got)
	}
}

func TestReadingJSON_OmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(Reading{City: "Oslo", Timestamp: "2024-01-01T00:00:00Z", Humidity: Float(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"city":"Oslo","ts":"2024-01-01T00:00:00Z","humidity":0}`
	if string(b) != want {
		t.Fatalf("json = %s; want %s", b, want)
	}
}

func TestAggregateJSON_EmptyKeepsCount(t *testing.T) {
	b, err := json.Marshal(Aggregate{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"count":0}` {
		t.Fatalf("json = %s; want {\"count\":0}", b)
	}
}
