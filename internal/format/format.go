// Package format renders dashboard statistics and timestamps.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// DateLayout is how timestamps are shown in lists.
const DateLayout = "2006/01/02 15:04"

// Percentage renders a value that is already a percentage with one
// decimal, e.g. 92.46 -> "92.5%". NaN renders as 0.
func Percentage(v float64) string {
	if math.IsNaN(v) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// Count renders an integer counter.
func Count(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Duration renders seconds as m:ss. Negative input renders as 0:00.
func Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Percent renders a 0..1 ratio with two decimals, e.g. 0.5 -> "50.00%".
func Percent(ratio float64) string {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// Number renders an integer with thousands separators.
func Number(n int64) string {
	return humanize.Comma(n)
}

// Bytes renders a byte size, e.g. 1.2 MB.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Date renders an RFC 3339 timestamp in local time. Empty or unparsable
// input renders as "".
func Date(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return ""
	}
	return t.Local().Format(DateLayout)
}

// Time renders t in local time, or "" for the zero time.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(DateLayout)
}

// Ago renders t relative to now, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
