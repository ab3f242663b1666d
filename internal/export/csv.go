// Package export serializes pipeline records to CSV and publishes the
// artifact to object storage.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/aqexport/aqexport/internal/pipeline"
)

// Header is the fixed column order of the output file. It is the wire
// contract of the artifact; consumers key on these names and positions.
var Header = []string{
	"city",
	"latitude",
	"longitude",
	"parameter",
	"value",
	"unit",
	"datetime_utc",
	"datetime_local",
}

// EncodeCSV serializes records as UTF-8 CSV with a header row and no
// index column.
func EncodeCSV(records []pipeline.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.City,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			r.Parameter,
			formatFloat(r.Value),
			r.Unit,
			r.DatetimeUTC,
			r.DatetimeLocal,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
