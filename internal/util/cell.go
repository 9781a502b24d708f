package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ptsDatePattern matches the PTS export date format, e.g. "Mon-07-Oct-2024".
var ptsDatePattern = regexp.MustCompile(`^[A-Za-z]+-(\d{1,2})-([A-Za-z]{3})-(\d{4})$`)

var monthsByAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var fallbackDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-Jan-2006",
	"2-Jan-2006",
	time.RFC3339,
}

// Spreadsheet serial day zero (the 1900 date system, Lotus leap-year bug
// included, hence Dec 30 rather than Dec 31).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseCellDate converts a raw spreadsheet cell into a date. It accepts the
// PTS "Mon-07-Oct-2024" format, common date layouts, and bare spreadsheet
// serial numbers.
func ParseCellDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := ptsDatePattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		month, ok := monthsByAbbr[strings.ToLower(m[2])]
		if ok && day >= 1 && day <= 31 {
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if t.Day() == day {
				return t, true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if serial, err := strconv.ParseFloat(normalizeNumericToken(s), 64); err == nil {
		if serial >= 1 && serial < 200000 {
			return serialEpoch.AddDate(0, 0, int(serial)), true
		}
	}

	return time.Time{}, false
}

// ParseCellFloat converts a numeric cell to a float. Thousands separators
// (space, dot, comma groupings) and decimal commas are tolerated. An empty
// cell returns (nil, true); a non-numeric cell returns (nil, false).
func ParseCellFloat(raw string) (*float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, " ", " "))
	if s == "" {
		return nil, true
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(s), 64)
	if err != nil {
		return nil, false
	}
	return FloatPtr(parsed), true
}

// ParseCellInt converts a numeric cell to an int, truncating fractions the
// way the spreadsheet displays them. Empty returns (0, true).
func ParseCellInt(raw string) (int, bool) {
	f, ok := ParseCellFloat(raw)
	if !ok {
		return 0, false
	}
	if f == nil {
		return 0, true
	}
	return int(*f), true
}

var (
	dotGroupedPattern   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	commaGroupedPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if dotGroupedPattern.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if commaGroupedPattern.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

var processAliases = map[string]string{
	"fit-up":        "Fit-up",
	"fitup":         "Fit-up",
	"welding":       "Welding",
	"weld":          "Welding",
	"visualization": "Visualization",
	"visual":        "Visualization",
	"sandblasting":  "Sandblasting",
	"sand blasting": "Sandblasting",
	"painting":      "Painting",
	"paint":         "Painting",
	"galvanization": "Galvanization",
	"galvanizing":   "Galvanization",
	"dispatch":      "Dispatch",
	"erection":      "Erection",
	"preparation":   "Preparation",
	"prep":          "Preparation",
}

// NormalizeProcess folds process-type spelling variants into the canonical
// names used by the production-log natural key. Unknown types pass through
// trimmed but otherwise unchanged.
func NormalizeProcess(raw string) string {
	s := strings.TrimSpace(raw)
	if canonical, ok := processAliases[strings.ToLower(s)]; ok {
		return canonical
	}
	return s
}

// MatchKey normalizes a natural-key component for case-insensitive lookup.
func MatchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func Int64Ptr(v int64) *int64 { return &v }
