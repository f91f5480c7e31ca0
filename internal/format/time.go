package format

import "time"

// TimestampLayout is used on receipts and text shares
const TimestampLayout = "Jan 2, 2006 at 3:04 PM"

// FormatTimestamp renders t in TimestampLayout, or "-" for the zero time
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(TimestampLayout)
}
