package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// ValidUsername reports whether s is acceptable as a gateway account name.
func ValidUsername(s string) bool {
	return usernameRe.MatchString(s)
}

// ConvertPersianToEnglish converts Persian/Arabic numerals to English.
func ConvertPersianToEnglish(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			result.WriteRune(r - '۰' + '0')
		case r >= '٠' && r <= '٩':
			result.WriteRune(r - '٠' + '0')
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeDigits converts numerals to ASCII and drops spaces and dashes.
func NormalizeDigits(s string) string {
	s = ConvertPersianToEnglish(s)
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// ParseInt safely converts string to int with a default value.
func ParseInt(s string, defaultVal int) int {
	s = strings.TrimSpace(ConvertPersianToEnglish(s))
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// ParseInt64 safely converts string to int64.
func ParseInt64(s string, defaultVal int64) int64 {
	s = strings.TrimSpace(ConvertPersianToEnglish(s))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

// ParseUintList parses "1, 2,3" into IDs, skipping anything unparsable.
func ParseUintList(s string) []uint {
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || v == 0 {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids
}

// FormatNumber adds comma separators to a number.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var result strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	if neg {
		return "-" + result.String()
	}
	return result.String()
}

// FormatBytes converts bytes to human-readable format.
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
