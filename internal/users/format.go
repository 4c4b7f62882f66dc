package users

import "time"

// DateLayout renders dates as "May 15, 2020 10:00 AM".
const DateLayout = "Jan 2, 2006 3:04 PM"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
