package accounts

import (
	"time"

	"github.com/angelmondragon/canteen-backend/pkg/calendar"
)

// Accrual is the outcome of walking the days since the last replenishment.
type Accrual struct {
	// Amount is the number of points earned since the last month boundary
	// crossed, or since last when no boundary was crossed.
	Amount int64
	// Reset reports that a month boundary was crossed. The balance must then
	// be set to Amount instead of incremented by it.
	Reset bool
	// Workdays counts the business days that contributed to Amount.
	Workdays int
}

// Accrue computes the points earned in the calendar days (last, now], both
// taken in loc. Points do not roll over: every first day of a month clears
// what was accumulated before it.
func Accrue(last, now time.Time, loc *time.Location, daily int64, cal *calendar.Calendar) Accrual {
	if loc == nil {
		loc = time.UTC
	}
	from := dayOf(last.In(loc))
	to := dayOf(now.In(loc))

	var out Accrual
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Day() == 1 {
			out = Accrual{Reset: true}
		}
		if cal.IsBusinessDay(d) {
			out.Amount += daily
			out.Workdays++
		}
	}
	return out
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return dayOf(a.In(loc)).Equal(dayOf(b.In(loc)))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
