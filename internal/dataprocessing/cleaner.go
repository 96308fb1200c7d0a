package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Cleaned is the result of cleaning a raw cell value: either a Number or a Text.
// The interface is sealed; only the two types below implement it.
type Cleaned interface {
	isCleaned()
}

// Number is a cell value that is (or cleaned into) a decimal number.
type Number float64

// Text is a cell value that stayed textual after cleaning.
type Text string

func (Number) isCleaned() {}
func (Text) isCleaned()   {}

// Named fallbacks substituted when a cell is missing or cannot be coerced.
const (
	numericFallback = 0
	textFallback    = ""
)

// RawKind tells Clean how the workbook stored a cell.
type RawKind int

const (
	RawEmpty RawKind = iota
	RawString
	RawNumber
	RawBool
)

// RawCell is a cell value as read from a workbook, before cleaning.
type RawCell struct {
	Kind   RawKind
	String string
	Number float64
	Bool   bool
}

// Clean turns a raw cell into a Cleaned value.
//
// Empty cells become Text(""). Strings are trimmed, stripped of every rune that is
// not a letter, digit, whitespace, '.' or '-', and become a Number when what is
// left, trimmed once more, parses fully as a decimal. Otherwise the stripped
// string is kept as Text. Typed numbers and booleans pass through as Number.
func Clean(raw RawCell) Cleaned {
	switch raw.Kind {
	case RawNumber:
		return Number(raw.Number)
	case RawBool:
		if raw.Bool {
			return Number(1)
		}
		return Number(0)
	case RawString:
		return cleanString(raw.String)
	default:
		return Text(textFallback)
	}
}

func cleanString(s string) Cleaned {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '.' || r == '-' {
			return r
		}
		return -1
	}, strings.TrimSpace(s))

	if stripped == "" {
		return Text(stripped)
	}
	// Stripping can expose whitespace ("35.5 %" -> "35.5 "), so trim again before parsing.
	// ParseFloat also accepts "Inf", "NaN" and hex mantissas; only finite decimals count.
	candidate := strings.TrimSpace(stripped)
	if n, err := strconv.ParseFloat(candidate, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) && !isHexLiteral(candidate) {
		return Number(n)
	}
	return Text(stripped)
}

func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// AsNumber coerces a cleaned value to a float. Text and non-finite numbers
// become numericFallback.
func AsNumber(c Cleaned) float64 {
	if n, ok := c.(Number); ok {
		f := float64(n)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return numericFallback
}

// AsCount coerces a cleaned value to an integer count, truncating toward zero.
func AsCount(c Cleaned) int64 {
	f := AsNumber(c)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return numericFallback
	}
	return int64(f)
}

// AsText renders a cleaned value as a categorical string.
func AsText(c Cleaned) string {
	switch v := c.(type) {
	case Text:
		return string(v)
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	default:
		return textFallback
	}
}
