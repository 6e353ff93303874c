// Package calendar decides which days count as business days for point
// accrual.
package calendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Calendar holds the holiday and make-up workday overrides. The zero value
// treats Monday to Friday as business days.
type Calendar struct {
	holidays map[string]struct{}
	makeup   map[string]struct{}
}

type fileFormat struct {
	Holidays       []string `yaml:"holidays"`
	MakeupWorkdays []string `yaml:"makeup_workdays"`
}

// New builds a calendar from date strings in YYYY-MM-DD form.
func New(holidays, makeupWorkdays []string) (*Calendar, error) {
	c := &Calendar{
		holidays: make(map[string]struct{}, len(holidays)),
		makeup:   make(map[string]struct{}, len(makeupWorkdays)),
	}
	for _, d := range holidays {
		key, err := normalize(d)
		if err != nil {
			return nil, fmt.Errorf("holiday: %w", err)
		}
		c.holidays[key] = struct{}{}
	}
	for _, d := range makeupWorkdays {
		key, err := normalize(d)
		if err != nil {
			return nil, fmt.Errorf("makeup workday: %w", err)
		}
		c.makeup[key] = struct{}{}
	}
	return c, nil
}

// Parse reads the YAML calendar format.
func Parse(data []byte) (*Calendar, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	return New(f.Holidays, f.MakeupWorkdays)
}

// Load reads the calendar file at path. An empty path yields a calendar
// without overrides.
func Load(path string) (*Calendar, error) {
	if strings.TrimSpace(path) == "" {
		return &Calendar{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar %q: %w", path, err)
	}
	return Parse(data)
}

// IsBusinessDay reports whether the calendar date of t, in t's location, is
// a working day.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	key := t.Format(dateLayout)
	if c != nil {
		if _, ok := c.makeup[key]; ok {
			return true
		}
		if _, ok := c.holidays[key]; ok {
			return false
		}
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// CountBusinessDays counts business days in the half-open date range
// (from, to], comparing calendar dates in loc.
func (c *Calendar) CountBusinessDays(from, to time.Time, loc *time.Location) int {
	start := startOfDay(from.In(loc))
	end := startOfDay(to.In(loc))
	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func normalize(value string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t.Format(dateLayout), nil
}
