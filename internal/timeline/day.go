package timeline

import (
	"fmt"
	"time"
)

// Day is a calendar date with no zone attached. The zone is supplied
// whenever the day has to be pinned to real instants.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a "2006-01-02" date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Day{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

// Start returns local midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// End returns local midnight of the following day in loc.
func (d Day) End(loc *time.Location) time.Time {
	return d.AddDays(1).Start(loc)
}

// Length returns how long the day lasts in loc: 24h except on the days a
// daylight saving transition adds or removes time.
func (d Day) Length(loc *time.Location) time.Duration {
	return d.End(loc).Sub(d.Start(loc))
}

// Clock labels the instant offset (a fraction of the day's length) into
// the day with its wall-clock time in loc. The end of the day reads 24:00.
func (d Day) Clock(loc *time.Location, offset float64) string {
	if offset >= 1 {
		return "24:00"
	}
	if offset < 0 {
		offset = 0
	}
	t := d.Start(loc).Add(time.Duration(offset * float64(d.Length(loc)))).Round(time.Minute)
	return t.In(loc).Format("15:04")
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

// Before reports whether d is an earlier date than other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Weekday returns the day of the week.
func (d Day) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
