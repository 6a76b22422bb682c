package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"weather-api/internal/modules/weather/types"
)

const ContentType = "text/csv; charset=utf-8"

var header = []string{"timestamp", "temperature", "humidity"}

// WriteCSV writes readings in the given order. Absent values are empty cells.
func WriteCSV(w io.Writer, readings []types.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range readings {
		row := []string{r.Timestamp, formatValue(r.Temperature), formatValue(r.Humidity)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Timestamp, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
