package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var relativeAge = regexp.MustCompile(`(\d+)\s*\+?\s*(minute|min|hour|hr|day|week|month)s?\s+ago`)

// unix timestamps from 2001 onwards; shorter digit runs go through dateparse.
const minUnixDigits = 9

// ParseDate interprets v as a posting date, returning today when v is
// missing or unparseable. The result is truncated to a UTC date.
func ParseDate(v any, today time.Time) time.Time {
	switch t := v.(type) {
	case nil:
		return today
	case time.Time:
		return truncateDay(t)
	case float64:
		return fromUnix(int64(t), today)
	case int64:
		return fromUnix(t, today)
	case int:
		return fromUnix(int64(t), today)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromUnix(n, today)
		}
		return today
	case string:
		return parseDateString(t, today)
	default:
		return today
	}
}

func parseDateString(raw string, today time.Time) time.Time {
	s := strings.ToLower(Clean(raw))
	if s == "" {
		return today
	}
	switch {
	case strings.Contains(s, "just posted"), strings.Contains(s, "just now"),
		strings.Contains(s, "today"), s == "new":
		return today
	case strings.Contains(s, "yesterday"):
		return today.AddDate(0, 0, -1)
	}
	if m := relativeAge.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return today
		}
		switch m[2] {
		case "day":
			return today.AddDate(0, 0, -n)
		case "week":
			return today.AddDate(0, 0, -7*n)
		case "month":
			return today.AddDate(0, -n, 0)
		default:
			return today
		}
	}
	if isDigits(s) && len(s) >= minUnixDigits {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return today
		}
		return fromUnix(n, today)
	}
	parsed, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return today
	}
	return truncateDay(parsed)
}

func fromUnix(n int64, today time.Time) time.Time {
	if n <= 0 {
		return today
	}
	if n >= 1e12 {
		return truncateDay(time.UnixMilli(n))
	}
	return truncateDay(time.Unix(n, 0))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	return truncateDay(t)
}
