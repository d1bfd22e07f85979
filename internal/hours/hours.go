// Package hours evaluates a weekly open/close schedule in the practice's
// timezone.
package hours

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Schedule holds per-weekday opening spans. A weekday with no entry is closed
// all day.
type Schedule struct {
	location *time.Location
	spans    map[time.Weekday]span
	now      func() time.Time
}

type span struct {
	open  string // "08:00", compared lexically like the wall clock
	close string
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// New parses a config-shaped schedule, mapping lowercase weekday names to
// "HH:MM-HH:MM" spans. An empty span string closes that day.
func New(timezone string, schedule map[string]string) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	spans := make(map[time.Weekday]span)
	for day, raw := range schedule {
		wd, ok := weekdayNames[strings.ToLower(day)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", day)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		open, close, ok := strings.Cut(raw, "-")
		if !ok {
			return nil, fmt.Errorf("bad schedule span %q for %s", raw, day)
		}
		spans[wd] = span{open: strings.TrimSpace(open), close: strings.TrimSpace(close)}
	}

	return &Schedule{location: loc, spans: spans, now: time.Now}, nil
}

// IsOpen reports whether the practice is open right now.
func (s *Schedule) IsOpen() bool {
	return s.IsOpenAt(s.now())
}

// IsOpenAt reports whether t falls inside the configured span for its weekday,
// evaluated in the schedule's timezone. Boundaries are inclusive.
func (s *Schedule) IsOpenAt(t time.Time) bool {
	local := t.In(s.location)
	sp, ok := s.spans[local.Weekday()]
	if !ok {
		return false
	}
	clock := local.Format("15:04")
	return clock >= sp.open && clock <= sp.close
}

// Format renders the weekly schedule as the multi-line string substituted
// into auto-responses, Monday first.
func (s *Schedule) Format() string {
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}

	lines := make([]string, 0, len(order))
	for _, wd := range order {
		sp, ok := s.spans[wd]
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: Closed", wd))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s - %s", wd, format12h(sp.open), format12h(sp.close)))
	}
	return strings.Join(lines, "\n")
}

// Weekdays returns the open days, for diagnostics.
func (s *Schedule) Weekdays() []time.Weekday {
	days := make([]time.Weekday, 0, len(s.spans))
	for wd := range s.spans {
		days = append(days, wd)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

func format12h(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return strings.TrimPrefix(t.Format("3:04 PM"), "0")
}
