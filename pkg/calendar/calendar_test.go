package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsBusinessDayDefaultsToWeekdays(t *testing.T) {
	var c *Calendar
	require.True(t, c.IsBusinessDay(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)))  // Monday
	require.False(t, c.IsBusinessDay(time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC))) // Saturday
}

func TestOverrides(t *testing.T) {
	c, err := Parse([]byte(`
holidays:
  - 2026-10-01
makeup_workdays:
  - "2026-10-10"
`))
	require.NoError(t, err)

	require.False(t, c.IsBusinessDay(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))
	require.True(t, c.IsBusinessDay(time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)))
	require.True(t, c.IsBusinessDay(time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)))
}

func TestCountBusinessDays(t *testing.T) {
	c, err := New([]string{"2026-03-04"}, nil)
	require.NoError(t, err)

	from := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) // Monday evening
	to := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)    // next Monday morning
	// Tue, Thu, Fri, Mon; Wednesday is a holiday.
	require.Equal(t, 4, c.CountBusinessDays(from, to, time.UTC))
	require.Equal(t, 0, c.CountBusinessDays(to, to, time.UTC))
}

func TestCountBusinessDaysUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 2026-03-02 17:00 UTC is already Tuesday in Shanghai.
	from := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	require.Equal(t, 1, (&Calendar{}).CountBusinessDays(from, to, loc))
	require.Equal(t, 0, (&Calendar{}).CountBusinessDays(from, to, time.UTC))
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.True(t, c.IsBusinessDay(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays: [2026-03-02]\n"), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	require.False(t, c.IsBusinessDay(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

	_, err = Parse([]byte("holidays: [March 2nd]\n"))
	require.Error(t, err)
}
