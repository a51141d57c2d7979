package pgbulk

import (
	"math"
	"time"
)

const (
	// PostgreSQL epoch adjustment: days from 1970-01-01 to 2000-01-01
	PostgresDateEpochDays = 10957
	// PostgreSQL epoch adjustment: seconds from 1970-01-01 to 2000-01-01
	PostgresEpochSeconds = 946684800
	// PostgreSQL timestamp epoch adjustment: microseconds from 1970-01-01 to 2000-01-01
	PostgresTimestampEpochMicros = 946684800000000

	secondsPerDay = 86400

	// Seconds from 2000-01-01 to the Gregorian cutover (1582-10-15).
	gregorianCutoverSeconds = -13165977600
	// Seconds from 2000-01-01 to 1500-03-01, before which the Julian leap rule diverges.
	julianLeapSeconds = -15773356800
	// Average Julian century length in seconds used for the leap correction.
	julianCenturySeconds = 3155823050

	// maxPostgresSeconds keeps seconds*1e6 clear of the int64 infinity sentinels.
	maxPostgresSeconds = math.MaxInt64/1_000_000 - 1
)

// toPostgresSeconds converts seconds since the Unix epoch to seconds since the
// PostgreSQL epoch, shifting dates before 1582-10-15 onto the Julian calendar.
func toPostgresSeconds(unixSeconds int64) int64 {
	secs := unixSeconds - PostgresEpochSeconds

	if secs < gregorianCutoverSeconds {
		secs -= 10 * secondsPerDay
		if secs < julianLeapSeconds {
			years := (secs - julianLeapSeconds) / -julianCenturySeconds
			years++
			years -= years / 4
			secs += years * secondsPerDay
		}
	}
	return secs
}

// civilDays returns the number of days from 1970-01-01 to the calendar date of
// t in its own location, ignoring the clock.
func civilDays(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// postgresDays converts a calendar date to PostgreSQL date days. ok is false
// when the date does not fit a date field.
func postgresDays(t time.Time) (days int32, ok bool) {
	d := toPostgresSeconds(civilDays(t)*secondsPerDay) / secondsPerDay
	if d <= math.MinInt32 || d >= math.MaxInt32 {
		return 0, false
	}
	return int32(d), true
}

// postgresMicros converts the wall clock of t, read in its own location, to
// microseconds since the PostgreSQL epoch. ok is false when the result would
// overflow a timestamp field.
func postgresMicros(t time.Time) (us int64, ok bool) {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	wall := time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
	secs := toPostgresSeconds(wall.Unix())
	if secs > maxPostgresSeconds || secs < -maxPostgresSeconds {
		return 0, false
	}
	return secs*1_000_000 + int64(wall.Nanosecond()/1000), true
}
