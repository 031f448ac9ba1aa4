package util

import (
	"fmt"
	"time"
)

// absoluteTimeLayout matches the English medium date-time rendering the
// report has always used.
const absoluteTimeLayout = "Jan 2, 2006, 3:04:05 PM"

// FormatAbsoluteTime renders a timestamp in the report's fixed locale.
func FormatAbsoluteTime(t time.Time) string {
	return t.Format(absoluteTimeLayout)
}

type timeUnit struct {
	name    string
	seconds int64
}

var timeUnits = []timeUnit{
	{"year", 365 * 24 * 3600},
	{"month", 30 * 24 * 3600},
	{"week", 7 * 24 * 3600},
	{"day", 24 * 3600},
	{"hour", 3600},
	{"minute", 60},
	{"second", 1},
}

// FormatRelativeTime renders t relative to now in English, e.g.
// "5 minutes ago" or "in 2 days".
func FormatRelativeTime(t, now time.Time) string {
	delta := now.Unix() - t.Unix()

	future := delta < 0
	if future {
		delta = -delta
	}
	if delta == 0 {
		return "just now"
	}

	for _, unit := range timeUnits {
		if delta < unit.seconds {
			continue
		}
		value := delta / unit.seconds
		name := unit.name
		if value != 1 {
			name += "s"
		}
		if future {
			return fmt.Sprintf("in %d %s", value, name)
		}
		return fmt.Sprintf("%d %s ago", value, name)
	}

	return "just now"
}
