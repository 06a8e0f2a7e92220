// Package format provides human-readable formatting for CLI output.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TimestampLayout is the layout used for every timestamp shown to the user.
const TimestampLayout = "2006-01-02 15:04:05"

// Bytes formats a byte count using binary units.
// Example: Bytes(1536) => "1.5 KB"
func Bytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp]) //nolint:gosec // G602: exp max is 4
}

var printer = message.NewPrinter(language.English)

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Progress describes a download position. total <= 0 means the size is unknown.
// Example: Progress(512, 1024) => "512 B / 1.0 KB (50.0%)"
func Progress(done, total int64) string {
	if total <= 0 {
		return Bytes(done)
	}
	pct := float64(done) / float64(total) * 100
	return fmt.Sprintf("%s / %s (%.1f%%)", Bytes(done), Bytes(total), pct)
}

// Timestamp formats t in local time. A nil or zero time renders as "never".
func Timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(TimestampLayout)
}

// UnixTimestamp formats a unix-seconds string as returned by panels
// (exp_date, created_at). Empty, "0" and "null" mean no limit.
func UnixTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || s == "null" {
		return "unlimited"
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return time.Unix(secs, 0).Local().Format(TimestampLayout)
}

// RelativeTime formats t relative to now.
// Example: RelativeTime(time.Now().Add(-5*time.Minute)) => "5 minutes ago"
func RelativeTime(t time.Time) string {
	diff := time.Since(t)
	if diff < 0 {
		return "in " + span(-diff)
	}
	if diff < time.Minute {
		return "just now"
	}
	return span(diff) + " ago"
}

func span(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "a moment"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// CronDescription returns a short description of a 6-field cron expression
// (seconds first). Unrecognised shapes are returned unchanged.
// Example: CronDescription("0 0 */6 * * *") => "Every 6 hours"
func CronDescription(cronExpr string) string {
	fields := strings.Fields(strings.TrimSpace(cronExpr))
	if len(fields) != 6 {
		return cronExpr
	}
	sec, minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	everyDay := dom == "*" && month == "*" && dow == "*"

	if n := stepInterval(sec); n > 0 && minute == "*" && hour == "*" && everyDay {
		return "Every " + plural(n, "second")
	}
	if n := stepInterval(minute); n > 0 && hour == "*" && everyDay {
		return "Every " + plural(n, "minute")
	}
	if minute == "*" && hour == "*" && everyDay {
		return "Every minute"
	}
	if n := stepInterval(hour); n > 0 && everyDay {
		if n == 1 {
			return "Every hour"
		}
		return "Every " + plural(n, "hour")
	}

	h, hErr := strconv.Atoi(hour)
	m, mErr := strconv.Atoi(minute)
	if hour == "*" && mErr == nil && everyDay {
		if m == 0 {
			return "Every hour"
		}
		return fmt.Sprintf("Every hour at :%02d", m)
	}
	if hErr == nil && mErr == nil && everyDay {
		return fmt.Sprintf("Daily at %02d:%02d", h, m)
	}
	return cronExpr
}

// stepInterval returns N for "*/N" fields and 0 otherwise.
func stepInterval(field string) int {
	rest, ok := strings.CutPrefix(field, "*/")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
