package common

import (
	"strconv"
	"strings"
)

// Round rounds v to the given number of decimal places. The result is the
// correctly rounded decimal nearest to v, with exact ties going to the even
// digit.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// FoldKey trims s and lower-cases it so that names differing only in case
// or surrounding whitespace compare equal.
func FoldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
