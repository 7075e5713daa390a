package core

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// coerceText types a text cell the way spreadsheet readers do for formats
// without cell types (CSV, legacy XLS text): numbers become numbers,
// TRUE/FALSE become booleans, empty cells become null and everything else
// stays a string.
func coerceText(s string) Value {
	if s == "" {
		return Null()
	}

	trimmed := strings.TrimSpace(s)
	if numericRegex.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Number(f)
		}
	}
	switch {
	case strings.EqualFold(trimmed, "true"):
		return Bool(true)
	case strings.EqualFold(trimmed, "false"):
		return Bool(false)
	}
	return String(s)
}
