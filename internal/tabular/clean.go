package tabular

import (
	"math"
	"strconv"
	"strings"
)

// DefaultQuantity is used when a quantity cell is empty, non-numeric or not positive.
const DefaultQuantity = 1

// CleanCell trims surrounding whitespace and unwraps the Excel text-formula
// form ="..." that spreadsheets use to keep leading zeros. Quotes and '='
// anywhere else are part of the value.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}

	return s
}

// ParseQuantity converts a quantity cell into a positive count.
// Integral decimals such as "5.0" or "5,0" are accepted; anything else yields DefaultQuantity.
func ParseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultQuantity
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n > 0 {
			return n
		}
		return DefaultQuantity
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err == nil && f >= 1 && f <= math.MaxInt32 && f == math.Trunc(f) {
		return int(f)
	}

	return DefaultQuantity
}
