package services

import "time"

// Clock returns the current instant. Services derive "today" from it.
type Clock func() time.Time

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns day shifted by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

func today(clock Clock) time.Time {
	if clock == nil {
		return DateOf(time.Now())
	}
	return DateOf(clock())
}
