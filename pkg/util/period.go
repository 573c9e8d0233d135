package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// ParsePeriod resolves a lookback period ("5d", "2mo", "1y", "ytd", "max")
// to the start of the window ending at now.
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "":
		return time.Time{}, fmt.Errorf("period is empty")
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return time.Unix(0, 0).In(now.Location()), nil
	}

	n, unit, err := splitCount(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q: %w", period, err)
	}
	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "y":
		return now.AddDate(-n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("period %q: unknown unit %q", period, unit)
	}
}

// ParseInterval converts a bar interval ("1m", "1h", "1d", "1wk", "1mo") to a duration.
func ParseInterval(interval string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		return 0, fmt.Errorf("interval is empty")
	}
	if strings.HasSuffix(s, "mo") {
		n, _, err := splitCount(s)
		if err != nil {
			return 0, fmt.Errorf("interval %q: %w", interval, err)
		}
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	}
	s = strings.Replace(s, "wk", "w", 1)
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("interval %q: %w", interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be positive", interval)
	}
	return d, nil
}

func splitCount(s string) (int, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, "", fmt.Errorf("expected <count><unit>")
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("invalid count")
	}
	return n, s[i:], nil
}
