package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tehran(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)
	return loc
}

func TestDayOfMonth(t *testing.T) {
	loc := tehran(t)

	tests := []struct {
		name string
		at   time.Time
		cal  Calendar
		want int
	}{
		{"gregorian first", time.Date(2024, 3, 1, 0, 0, 0, 0, loc), Gregorian, 1},
		{"gregorian mid month", time.Date(2024, 3, 15, 12, 0, 0, 0, loc), Gregorian, 15},
		{"persian new year", time.Date(2024, 3, 20, 0, 0, 0, 0, loc), Persian, 1},
		{"persian esfand", time.Date(2024, 3, 1, 0, 0, 0, 0, loc), Persian, 11},
		{"persian mehr first", time.Date(2024, 9, 22, 8, 0, 0, 0, loc), Persian, 1},
		// 20:45 UTC on Feb 29 is already March 1 in Tehran.
		{"utc input converted", time.Date(2024, 2, 29, 20, 45, 0, 0, time.UTC), Gregorian, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayOfMonth(tt.at, loc, tt.cal))
		})
	}
}

func TestCycleStart(t *testing.T) {
	loc := tehran(t)

	start, ok := CycleStart(time.Date(2024, 3, 1, 13, 37, 0, 0, loc), loc, Gregorian)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 20, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.UTC, start.Location())

	later, ok := CycleStart(time.Date(2024, 3, 1, 23, 59, 0, 0, loc), loc, Gregorian)
	require.True(t, ok)
	assert.Equal(t, start, later)

	_, ok = CycleStart(time.Date(2024, 3, 15, 0, 0, 0, 0, loc), loc, Gregorian)
	assert.False(t, ok)
	_, ok = CycleStart(time.Date(2024, 3, 15, 0, 0, 0, 0, loc), loc, Persian)
	assert.False(t, ok)

	nowruz, ok := CycleStart(time.Date(2024, 3, 20, 0, 1, 0, 0, loc), loc, Persian)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 19, 20, 30, 0, 0, time.UTC), nowruz)
}

func TestParse(t *testing.T) {
	cal, err := Parse("persian")
	require.NoError(t, err)
	assert.Equal(t, Persian, cal)

	_, err = Parse("lunar")
	assert.Error(t, err)
}
