// Package gameday is the single canonical day clock. A day is the integer
// count of UTC days since the Unix epoch; clients may render local
// countdowns, but every eligibility decision uses these numbers.
package gameday

import "time"

// FromTime returns the day number for t.
func FromTime(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Today returns the current day number.
func Today() int64 {
	return FromTime(time.Now())
}

// StartOf returns the UTC midnight that begins the given day.
func StartOf(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}
