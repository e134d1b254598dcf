// Package timeline turns fasting intervals into the 24-hour colored bar
// drawn for each calendar day.
//
// Given a day, a time zone, the current instant and a set of intervals
// (possibly overlapping, possibly spanning several days, possibly still
// open), Segments returns an ordered partition of the day into Active and
// Inactive runs, each weighted by its share of the day. Everything here is
// a pure function of its arguments and safe for concurrent use.
package timeline

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

const (
	// DayLength is the length of a day without a daylight saving
	// transition.
	DayLength = 24 * time.Hour

	// MinutesPerDay is the number of minutes in such a day.
	MinutesPerDay = 1440
)

// ============================================================
// Types
// ============================================================

// Interval is one fasting period. A nil End means the fast is still
// ongoing; it is treated as ending at the "now" handed to Segments.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// Closed returns an interval that ended at end.
func Closed(start, end time.Time) Interval {
	return Interval{Start: start, End: &end}
}

// Open returns an interval that has not ended yet.
func Open(start time.Time) Interval {
	return Interval{Start: start}
}

// Ongoing reports whether the interval has no end yet.
func (iv Interval) Ongoing() bool {
	return iv.End == nil
}

// EffectiveEnd resolves an ongoing interval to now.
func (iv Interval) EffectiveEnd(now time.Time) time.Time {
	if iv.End == nil {
		return now
	}
	return *iv.End
}

// Span is a resolved [Start, End) range produced by Merge.
type Span struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// State is the classification of a segment.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as "active" or "inactive".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "active" or "inactive".
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*s = Active
	case "inactive":
		*s = Inactive
	default:
		return fmt.Errorf("unknown segment state %q", string(b))
	}
	return nil
}

// Segment is one run of a day's bar. Weight is the fraction of the day
// (0.0–1.0) the run covers.
type Segment struct {
	State  State   `json:"state"`
	Weight float64 `json:"weight"`
}

// DayTimeline pairs a day with its segments.
type DayTimeline struct {
	Day      Day       `json:"-"`
	Date     string    `json:"date"`
	Segments []Segment `json:"segments"`
}

// ============================================================
// Merge
// ============================================================

// Merge resolves ongoing intervals against now, sorts by start and folds
// overlapping or touching intervals together. The returned spans are
// disjoint and never touch. Intervals whose end is not after their start
// cover no time and are dropped.
func Merge(intervals []Interval, now time.Time) []Span {
	spans := make([]Span, 0, len(intervals))
	for _, iv := range intervals {
		end := iv.EffectiveEnd(now)
		if !end.After(iv.Start) {
			continue
		}
		spans = append(spans, Span{Start: iv.Start, End: end})
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Start.Before(spans[j].Start)
	})

	merged := make([]Span, 0, len(spans))
	cur := spans[0]
	for _, next := range spans[1:] {
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// ============================================================
// Segments
// ============================================================

// Segments partitions day, from local midnight in loc to the next local
// midnight, into Active and Inactive runs. The window is 24 hours except on
// daylight saving transition days, where it is 23 or 25. An interval counts
// toward the day when it starts before the day ends and (effectively) ends
// after it begins. Adjacent runs never share a state and the weights sum
// to 1.
func Segments(day Day, loc *time.Location, now time.Time, intervals []Interval) []Segment {
	dayStart := day.Start(loc)
	dayEnd := day.End(loc)
	minutes := int(dayEnd.Sub(dayStart) / time.Minute)

	var overlapping []Interval
	for _, iv := range intervals {
		if iv.Start.Before(dayEnd) && iv.EffectiveEnd(now).After(dayStart) {
			overlapping = append(overlapping, iv)
		}
	}
	if len(overlapping) == 0 {
		return fullDay(Inactive)
	}

	merged := Merge(overlapping, now)
	if len(merged) == 0 {
		return fullDay(Inactive)
	}

	// Everything below works in whole minutes from dayStart.
	active := make([][2]int, 0, len(merged))
	events := []int{0, minutes}
	for _, sp := range merged {
		s := minuteOffset(dayStart, sp.Start, minutes)
		e := minuteOffset(dayStart, sp.End, minutes)
		active = append(active, [2]int{s, e})
		if s > 0 && s < minutes {
			events = append(events, s)
		}
		if e > 0 && e < minutes {
			events = append(events, e)
		}
	}
	sort.Ints(events)
	events = slices.Compact(events)

	var out []Segment
	for i := 1; i < len(events); i++ {
		t0, t1 := events[i-1], events[i]
		if t1 <= t0 {
			continue
		}

		mid := float64(t0) + float64(t1-t0)/2
		state := Inactive
		for _, a := range active {
			if float64(a[0]) <= mid && mid < float64(a[1]) {
				state = Active
				break
			}
		}

		weight := float64(t1-t0) / float64(minutes)
		if n := len(out); n > 0 && out[n-1].State == state {
			out[n-1].Weight += weight
			continue
		}
		out = append(out, Segment{State: state, Weight: weight})
	}

	if len(out) == 0 {
		return fullDay(Inactive)
	}
	return out
}

// Month returns the timeline of every day of the given month.
func Month(year int, month time.Month, loc *time.Location, now time.Time, intervals []Interval) []DayTimeline {
	n := DaysIn(year, month)
	days := make([]DayTimeline, 0, n)
	for d := 1; d <= n; d++ {
		day := Day{Year: year, Month: month, Day: d}
		days = append(days, DayTimeline{
			Day:      day,
			Date:     day.String(),
			Segments: Segments(day, loc, now, intervals),
		})
	}
	return days
}

// ActiveDuration converts the Active share of a day's segments back to a
// duration, rounded to the minute. length is the day's Length.
func ActiveDuration(segments []Segment, length time.Duration) time.Duration {
	var w float64
	for _, s := range segments {
		if s.State == Active {
			w += s.Weight
		}
	}
	return time.Duration(w * float64(length)).Round(time.Minute)
}

func fullDay(state State) []Segment {
	return []Segment{{State: state, Weight: 1.0}}
}

// minuteOffset returns the whole minutes between dayStart and t, clamped
// to [0, minutes].
func minuteOffset(dayStart, t time.Time, minutes int) int {
	d := t.Sub(dayStart)
	if d <= 0 {
		return 0
	}
	if m := int(d / time.Minute); m < minutes {
		return m
	}
	return minutes
}
