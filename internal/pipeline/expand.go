package pipeline

import "strings"

// ExpandSensors flattens each station's embedded sensor list into one
// StationRow per (station, sensor) pair. A station with k sensors yields
// exactly k rows, each carrying the station's metadata unchanged.
//
// The sensor display name is split on its first space: the left part
// becomes the parameter (lower-cased), the right part the unit, verbatim.
// A name with no space is malformed; its row is excluded and reported in
// the returned error list, without aborting the remaining sensors.
func ExpandSensors(stations []Station) ([]StationRow, []error) {
	var rows []StationRow
	var malformed []error

	for _, s := range stations {
		for _, sensor := range s.Sensors {
			parameter, unit, ok := splitSensorName(sensor.RawName)
			if !ok {
				malformed = append(malformed, &MalformedSensorError{
					StationID: s.ID,
					SensorID:  sensor.ID,
					RawName:   sensor.RawName,
				})
				continue
			}
			rows = append(rows, StationRow{
				StationID: s.ID,
				Name:      s.Name,
				Locality:  s.Locality,
				Country:   s.Country,
				Timezone:  s.Timezone,
				SensorID:  sensor.ID,
				Parameter: parameter,
				Unit:      unit,
			})
		}
	}

	return rows, malformed
}

// splitSensorName splits "pm25 µg/m³" into ("pm25", "µg/m³").
func splitSensorName(name string) (parameter, unit string, ok bool) {
	parameter, unit, ok = strings.Cut(name, " ")
	if !ok || parameter == "" || unit == "" {
		return "", "", false
	}
	return strings.ToLower(parameter), unit, true
}
