package core

import (
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lines yields the non-blank lines of raw, trimmed, in original order.
// The sequence is lazy and can be ranged over any number of times.
func Lines(raw string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := raw
		for len(rest) > 0 {
			var line string
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				line, rest = rest[:i], rest[i+1:]
			} else {
				line, rest = rest, ""
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// TokenizeText turns multi-line text into one Record per non-blank line.
// Empty or whitespace-only input is rejected with ErrEmptyInput.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func TokenizeText(raw string) ([]Record, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	// Invalid UTF-8 becomes U+FFFD so the JSON export decodes back to the
	// same records.
	raw = strings.ToValidUTF8(raw, "\uFFFD")

	upper := cases.Upper(language.Und)
	var records []Record
	for line := range Lines(raw) {
		records = append(records, NewRecord(
			Field{FieldID, Int(len(records) + 1)},
			Field{FieldOriginal, String(line)},
			Field{FieldUppercase, String(upper.String(line))},
			Field{FieldLength, Int(utf8.RuneCountInString(line))},
			Field{FieldWords, Int(len(strings.Fields(line)))},
		))
	}
	return records, nil
}
