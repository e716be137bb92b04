package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is how old a posting may be and still count as recent.
const DefaultMaxAge = 60 * 24 * time.Hour

var (
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	yearOnlyRegex = regexp.MustCompile(`\b(20\d{2})\b`)
	relativeRegex = regexp.MustCompile(`(?i)(\d+)\+?\s*(minute|hour|day|week|month|year)s?\s+ago`)
)

// IsRecentJob accepts ISO dates, dd/mm/yyyy, relative labels such as
// "3 days ago" and bare years. Unknown formats count as recent.
func IsRecentJob(dateStr string, maxAge time.Duration) bool {
	return isRecentAt(time.Now(), dateStr, maxAge)
}

func isRecentAt(now time.Time, dateStr string, maxAge time.Duration) bool {
	dateStr = strings.TrimSpace(dateStr)
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	lower := strings.ToLower(dateStr)
	if dateStr == "" || dateStr == "N/A" || lower == "recent" || strings.Contains(lower, "just posted") || strings.Contains(lower, "today") {
		return true
	}

	//case 1: ISO format "2026-01-27" or 2026-01-27T...
	if isoDateRegex.MatchString(dateStr) {
		if jobDate, err := time.Parse("2006-01-02", dateStr[:10]); err == nil {
			return within(now, jobDate, maxAge)
		}
	}

	//case 2: "Posted 3 days ago", "30+ days ago"
	if m := relativeRegex.FindStringSubmatch(dateStr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return within(now, now.Add(-time.Duration(n)*unit(strings.ToLower(m[2]))), maxAge)
	}

	//case 3: dd/mm/yyyy
	if parts := strings.Split(dateStr, "/"); len(parts) >= 3 {
		day, _ := strconv.Atoi(parts[0])
		month, _ := strconv.Atoi(parts[1])
		year, _ := strconv.Atoi(strings.Fields(parts[2] + " ")[0])
		return within(now, time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), maxAge)
	}

	//case 4: year only fallback
	if match := yearOnlyRegex.FindStringSubmatch(dateStr); match != nil {
		year, _ := strconv.Atoi(match[1])
		return year == now.Year() || year == now.Year()-1
	}

	return true
}

func unit(u string) time.Duration {
	switch u {
	case "minute":
		return time.Minute
	case "hour":
		return time.Hour
	case "day":
		return 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

func within(now, jobDate time.Time, maxAge time.Duration) bool {
	diff := now.Sub(jobDate)
	if diff > maxAge {
		return false
	}
	//reject future dates beyond 2 days (timezone drift)
	return diff >= -2*24*time.Hour
}
