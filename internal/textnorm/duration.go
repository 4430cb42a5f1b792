package textnorm

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDurationRe = regexp.MustCompile(`(?i)^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	hoursRe       = regexp.MustCompile(`(?i)` + durationQuantity + `\s*(?:h|hr|hrs|hour|hours)\b`)
	minutesRe     = regexp.MustCompile(`(?i)` + durationQuantity + `\s*(?:m|min|mins|minute|minutes)\b`)
)

// durationQuantity matches "2", "1.5", "1 1/2", "1/2", "1½" and "½".
const durationQuantity = `(\d+(?:[.,]\d+)?(?:\s*[½¼¾]|\s+\d+/\d+)?|\d+/\d+|[½¼¾])`

var unicodeFractions = map[rune]float64{'½': 0.5, '¼': 0.25, '¾': 0.75}

// ParseDuration converts a duration string to whole minutes. ISO-8601
// durations ("PT1H15M") are honoured; free text with hour and minute units is
// summed; otherwise the first embedded integer is taken as minutes.
func ParseDuration(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := isoDurationRe.FindStringSubmatch(s); m != nil {
		return isoMinutes(m)
	}
	h := hoursRe.FindStringSubmatch(s)
	mm := minutesRe.FindStringSubmatch(s)
	if h == nil && mm == nil {
		return FirstInt(s)
	}
	var total float64
	if h != nil {
		total += parseQuantity(h[1]) * 60
	}
	if mm != nil {
		total += parseQuantity(mm[1])
	}
	return int(math.Round(total)), true
}

// parseQuantity reads a durationQuantity match as a decimal number.
func parseQuantity(q string) float64 {
	q = strings.TrimSpace(strings.ReplaceAll(q, ",", "."))
	var total float64
	for r, f := range unicodeFractions {
		if strings.ContainsRune(q, r) {
			total += f
			q = strings.ReplaceAll(q, string(r), " ")
		}
	}
	for _, field := range strings.Fields(q) {
		if num, den, ok := strings.Cut(field, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 == nil && err2 == nil && d != 0 {
				total += n / d
			}
			continue
		}
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			total += v
		}
	}
	return total
}

func isoMinutes(m []string) (int, bool) {
	if m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "" {
		return 0, false
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}
	total := atoi(m[1])*24*60 + atoi(m[2])*60 + atoi(m[3])
	if m[4] != "" {
		secs, _ := strconv.ParseFloat(m[4], 64)
		total += int(math.Ceil(secs / 60))
	}
	return total, true
}

// ParseDurationValue accepts the loosely typed values found in structured
// metadata: strings, numbers, or nil.
func ParseDurationValue(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return ParseDuration(t)
	case float64:
		if t < 0 {
			return 0, false
		}
		return int(t), true
	case json.Number:
		return ParseDuration(t.String())
	case int:
		return t, t >= 0
	case []any:
		for _, item := range t {
			if n, ok := ParseDurationValue(item); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// DurationPtr is ParseDuration returning nil for "no value".
func DurationPtr(s string) *int {
	if n, ok := ParseDuration(s); ok {
		return &n
	}
	return nil
}

// ParseYield extracts a serving count. Numbers are used directly; strings
// yield their first integer; lists yield their first element that parses.
func ParseYield(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, t > 0
	case float64:
		if t <= 0 {
			return 0, false
		}
		return int(t), true
	case json.Number:
		return ParseYield(t.String())
	case string:
		return FirstInt(t)
	case []any:
		for _, item := range t {
			if n, ok := ParseYield(item); ok {
				return n, true
			}
		}
	case []string:
		for _, item := range t {
			if n, ok := FirstInt(item); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// YieldPtr is ParseYield returning nil for "no value".
func YieldPtr(v any) *int {
	if n, ok := ParseYield(v); ok {
		return &n
	}
	return nil
}
