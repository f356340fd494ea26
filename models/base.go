package models

import (
	"time"
)

// ParseDateString parses an upstream "2006-01-02 15:04:05" timestamp in the
// given IANA timezone and returns it in UTC. Upstream APIs report wall-clock
// times in the store's local zone without an offset.
func ParseDateString(dateString string, timezone string) (time.Time, error) {
	localTime, err := time.Parse("2006-01-02 15:04:05", dateString)
	if err != nil {
		// Some endpoints use the ISO variant with a T separator.
		localTime, err = time.Parse("2006-01-02T15:04:05", dateString)
		if err != nil {
			return time.Time{}, err
		}
	}

	if timezone == "" {
		timezone = "America/Bogota"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		localTime.Hour(), localTime.Minute(), localTime.Second(), localTime.Nanosecond(),
		location,
	)

	return localTimeInZone.UTC(), nil
}
