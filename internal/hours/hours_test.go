package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdaySchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := New("America/New_York", map[string]string{
		"monday":    "08:00-17:00",
		"tuesday":   "08:00-17:00",
		"wednesday": "08:00-17:00",
		"thursday":  "08:00-17:00",
		"friday":    "08:00-17:00",
		"saturday":  "09:00-13:00",
	})
	require.NoError(t, err)
	return s
}

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestIsOpenAt(t *testing.T) {
	s := weekdaySchedule(t)
	loc := eastern(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday mid-morning", time.Date(2025, 6, 2, 10, 30, 0, 0, loc), true},
		{"monday opening boundary", time.Date(2025, 6, 2, 8, 0, 0, 0, loc), true},
		{"monday closing boundary", time.Date(2025, 6, 2, 17, 0, 0, 0, loc), true},
		{"monday before open", time.Date(2025, 6, 2, 7, 59, 0, 0, loc), false},
		{"monday evening", time.Date(2025, 6, 2, 19, 0, 0, 0, loc), false},
		{"saturday short hours", time.Date(2025, 6, 7, 12, 0, 0, 0, loc), true},
		{"saturday afternoon", time.Date(2025, 6, 7, 14, 0, 0, 0, loc), false},
		{"sunday closed all day", time.Date(2025, 6, 1, 11, 0, 0, 0, loc), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsOpenAt(tt.at))
		})
	}
}

func TestIsOpenAtConvertsTimezone(t *testing.T) {
	s := weekdaySchedule(t)

	// 13:00 UTC on a Monday in June is 09:00 in New York.
	utc := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	assert.True(t, s.IsOpenAt(utc))

	// 02:00 UTC Tuesday is 22:00 Monday in New York.
	late := time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC)
	assert.False(t, s.IsOpenAt(late))
}

func TestFormat(t *testing.T) {
	s := weekdaySchedule(t)

	got := s.Format()
	assert.Contains(t, got, "Monday: 8:00 AM - 5:00 PM")
	assert.Contains(t, got, "Saturday: 9:00 AM - 1:00 PM")
	assert.Contains(t, got, "Sunday: Closed")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("Not/AZone", map[string]string{"monday": "08:00-17:00"})
	assert.Error(t, err)

	_, err = New("UTC", map[string]string{"funday": "08:00-17:00"})
	assert.Error(t, err)

	_, err = New("UTC", map[string]string{"monday": "0800 to 1700"})
	assert.Error(t, err)
}

func TestEmptySpanMeansClosed(t *testing.T) {
	s, err := New("UTC", map[string]string{"monday": ""})
	require.NoError(t, err)

	monday := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	assert.False(t, s.IsOpenAt(monday))
	assert.Empty(t, s.Weekdays())
}
