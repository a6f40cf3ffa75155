package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// DayBounds returns the first and last millisecond of t's calendar day in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}

// Parse turns a "HH:MM - HH:MM" slot into an Interval anchored to day.
func Parse(day time.Time, slot string) (Interval, error) {
	parts := strings.Split(slot, " - ")
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("invalid slot %q: expected \"HH:MM - HH:MM\"", slot)
	}

	start, err := clockOn(day, parts[0])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid slot %q: %w", slot, err)
	}
	end, err := clockOn(day, parts[1])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid slot %q: %w", slot, err)
	}

	return Interval{Start: start, End: end}, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	hm := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(hm) != 2 {
		return time.Time{}, fmt.Errorf("bad clock value %q", hhmm)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour < 0 || hour > 24 {
		return time.Time{}, fmt.Errorf("bad hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("bad minute in %q", hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

// FilterAvailable returns the candidates that overlap none of the booked intervals,
// keeping their original order.
func FilterAvailable(day time.Time, candidates []string, booked []Interval) ([]string, error) {
	available := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		slot, err := Parse(day, candidate)
		if err != nil {
			return nil, err
		}

		free := true
		for _, b := range booked {
			if Overlaps(slot, b) {
				free = false
				break
			}
		}
		if free {
			available = append(available, candidate)
		}
	}
	return available, nil
}
