package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	t.Parallel()

	afternoon := time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local)
	morning := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	on := func(day, hour, minute int) time.Time {
		return time.Date(2026, 3, day, hour, minute, 0, 0, time.Local)
	}

	tests := []struct {
		name string
		in   string
		now  time.Time
		want time.Time
	}{
		{"exact minutes", "2026-03-20 10:00", afternoon, on(20, 10, 0)},
		{"exact seconds", "2026-03-20 10:00:00", afternoon, on(20, 10, 0)},
		{"iso separator", "2026-03-20T10:00", afternoon, on(20, 10, 0)},
		{"tomorrow pm", "tomorrow at 2pm", afternoon, on(15, 14, 0)},
		{"tomorrow am", "Tomorrow 9am", afternoon, on(15, 9, 0)},
		{"midnight", "tomorrow at 12am", afternoon, on(15, 0, 0)},
		{"noon", "tomorrow at 12pm", afternoon, on(15, 12, 0)},
		{"bare hour after noon reads as pm", "today at 5", afternoon, on(14, 17, 0)},
		{"bare hour before noon stays am", "today at 5", morning, on(14, 5, 0)},
		{"clock with minutes is 24h", "tomorrow at 10:30", afternoon, on(15, 10, 30)},
		{"date with meridiem", "2026-03-20 9am", afternoon, on(20, 9, 0)},
		{"time only means today", "6pm", morning, on(14, 18, 0)},
		{"dotted meridiem", "tomorrow at 7 p.m.", morning, on(15, 19, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDateTime(tt.in, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseDateTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local)
	for _, in := range []string{"next week", "tomorrow", "2026-13-01 10:00", "tomorrow at 25", "tomorrow at 13pm", "today at 10:75", ""} {
		_, err := ParseDateTime(in, now)
		assert.Error(t, err, in)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local)

	got, err := ParseDate("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", got.Format("2006-01-02"))

	got, err = ParseDate("2026-04-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", got.Format("2006-01-02"))

	_, err = ParseDate("04/01/2026", now)
	assert.Error(t, err)
}
