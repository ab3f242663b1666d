package pipeline

import (
	"strconv"
	"strings"
)

// UnmatchedSensorError reports a reading whose sensor id has no entry in
// the expanded station rows. The reading is kept through the join with
// empty metadata; transient sensor-catalog drift never silently loses data.
type UnmatchedSensorError struct {
	SensorID int64
}

func (e *UnmatchedSensorError) Error() string {
	return "reading references unknown sensor " + strconv.FormatInt(e.SensorID, 10)
}

// Normalize joins the city's readings onto its expanded station rows and
// projects them into the flat export schema.
//
// The join is a left join on sensor id: every reading survives, readings
// without a matching row keep empty parameter and unit and are reported.
// Rows are then filtered to the target parameter set (matched after
// lower-casing) and stamped with the city name. Input order is preserved,
// so the same inputs always produce identical output.
func Normalize(city string, readings []Reading, rows []StationRow, targets map[string]struct{}) ([]Record, []error) {
	meta := make(map[int64]StationRow, len(rows))
	for _, row := range rows {
		// First row wins on duplicate sensor ids, matching input order.
		if _, ok := meta[row.SensorID]; !ok {
			meta[row.SensorID] = row
		}
	}

	var records []Record
	var unmatched []error

	for _, r := range readings {
		row, ok := meta[r.SensorID]
		if !ok {
			unmatched = append(unmatched, &UnmatchedSensorError{SensorID: r.SensorID})
		}

		parameter := strings.ToLower(row.Parameter)
		if _, want := targets[parameter]; !want {
			continue
		}

		records = append(records, Record{
			City:          city,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
			Parameter:     parameter,
			Value:         r.Value,
			Unit:          row.Unit,
			DatetimeUTC:   r.DatetimeUTC,
			DatetimeLocal: r.DatetimeLocal,
		})
	}

	return records, unmatched
}
