package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	tomorrowRe = regexp.MustCompile(`(?i)\btomorrow\b`)
	todayRe    = regexp.MustCompile(`(?i)\b(?:today|tonight)\b`)
)

// weekdayPatterns are checked Monday first. "next friday", "this friday",
// "on friday" and a bare "friday" all match the same pattern.
var weekdayPatterns = []struct {
	re  *regexp.Regexp
	day time.Weekday
}{
	{regexp.MustCompile(`(?i)\bmonday\b`), time.Monday},
	{regexp.MustCompile(`(?i)\btuesday\b`), time.Tuesday},
	{regexp.MustCompile(`(?i)\bwednesday\b`), time.Wednesday},
	{regexp.MustCompile(`(?i)\bthursday\b`), time.Thursday},
	{regexp.MustCompile(`(?i)\bfriday\b`), time.Friday},
	{regexp.MustCompile(`(?i)\bsaturday\b`), time.Saturday},
	{regexp.MustCompile(`(?i)\bsunday\b`), time.Sunday},
}

// ResolveDate picks the calendar day referenced by text, relative to now.
// "tomorrow" wins over "today", which wins over weekday names. A weekday
// always resolves to its next future occurrence, one to seven days ahead.
// With no reference the result is now itself. The clock time of now is
// kept; callers overwrite it when a time is found.
func ResolveDate(text string, now time.Time) time.Time {
	if tomorrowRe.MatchString(text) {
		return now.AddDate(0, 0, 1)
	}
	if todayRe.MatchString(text) {
		return now
	}
	for _, wd := range weekdayPatterns {
		if wd.re.MatchString(text) {
			return now.AddDate(0, 0, daysUntil(now.Weekday(), wd.day))
		}
	}
	return now
}

// daysUntil counts forward from current to target, treating the same
// weekday as a week away.
func daysUntil(current, target time.Weekday) int {
	d := (int(target) - int(current) + 7) % 7
	if d == 0 {
		d = 7
	}
	return d
}

const marker = `(a\.m\.|p\.m\.|am\b|pm\b)`

// clockPattern is one accepted time-of-day shape. hasMinute and hasMarker
// say which submatches exist after the hour.
type clockPattern struct {
	re        *regexp.Regexp
	hasMinute bool
	hasMarker bool
}

// timePatterns are tried in strict priority order. The second shape accepts
// a bare "at 5" and returns hour 5 as written: there is no am/pm guessing.
var timePatterns = []clockPattern{
	{regexp.MustCompile(`(?i)\bat\s+(\d{1,2}):(\d{2})\s*` + marker), true, true},
	{regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?:\s*` + marker + `)?(?:[^:\d]|$)`), false, true},
	{regexp.MustCompile(`(?i)\bat\s+(\d{1,2}):(\d{2})\b`), true, false},
	{regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*` + marker), true, true},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*` + marker), false, true},
}

// ResolveTime finds a time of day in text. Matches with an out-of-range
// hour or minute are skipped in favour of the next candidate.
func ResolveTime(text string) (hour, minute int, ok bool) {
	for _, p := range timePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if h, min, valid := p.parse(m); valid {
				return h, min, true
			}
		}
	}
	return 0, 0, false
}

func (p clockPattern) parse(m []string) (int, int, bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	minute, idx := 0, 2
	if p.hasMinute {
		if minute, err = strconv.Atoi(m[2]); err != nil || minute > 59 {
			return 0, 0, false
		}
		idx = 3
	}

	var mer string
	if p.hasMarker && idx < len(m) {
		mer = strings.ToLower(m[idx])
	}
	switch {
	case mer == "":
		if hour > 23 {
			return 0, 0, false
		}
	case hour < 1 || hour > 12:
		return 0, 0, false
	case strings.HasPrefix(mer, "p") && hour < 12:
		hour += 12
	case strings.HasPrefix(mer, "a") && hour == 12:
		hour = 0
	}
	return hour, minute, true
}

var (
	hoursRe   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	minutesRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:minutes?|mins?)\b`)
)

// ResolveDuration finds "<N> hours" or, failing that, "<N> minutes".
// Zero-length durations and values too large for a time.Duration are
// ignored.
func ResolveDuration(text string) (time.Duration, bool) {
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err == nil && h > 0 && h*float64(time.Hour) < math.MaxInt64 {
			return time.Duration(h * float64(time.Hour)), true
		}
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n > 0 && n <= math.MaxInt64/int64(time.Minute) {
			return time.Duration(n) * time.Minute, true
		}
	}
	return 0, false
}

// At returns day with its clock set to hour:minute in day's location.
func At(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
