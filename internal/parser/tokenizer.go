package parser

import (
	"errors"
	"strconv"
	"strings"
)

// errNoNumber is returned by scanFloat when no numeric prefix is found.
var errNoNumber = errors.New("no numeric field")

// Phase-shift files come out of fixed-format FORTRAN writers which leave no
// blank between adjacent negative numbers ("-0.1000-0.2000"). A field
// therefore starts either after whitespace or at a '-'.

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isSeparator(c byte) bool {
	return c == '-' || isSpace(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// numericPrefix returns the longest prefix of s that reads as a decimal
// floating-point number. An exponent is only taken when it has digits.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

// scanFloat skips leading whitespace and reads one number from s.
func scanFloat(s string, bitSize int) (float64, error) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	num := numericPrefix(s)
	if num == "" {
		return 0, errNoNumber
	}
	return strconv.ParseFloat(num, bitSize)
}

// skipField moves pos past the separators at pos and then past the field
// that follows them.
func skipField(line string, pos int) int {
	for pos < len(line) && isSeparator(line[pos]) {
		pos++
	}
	for pos < len(line) && !isSeparator(line[pos]) {
		pos++
	}
	return pos
}

// ParseFields reads exactly n numbers from line. bitSize is 32 or 64.
func ParseFields(line string, n int, bitSize int) ([]float64, error) {
	vals := make([]float64, n)
	pos := 0
	for k := 0; k < n; k++ {
		v, err := scanFloat(line[pos:], bitSize)
		if err != nil {
			return nil, &MalformedNumberError{Line: strings.TrimRight(line, "\r\n"), Want: n, Got: k, Err: err}
		}
		vals[k] = v
		pos = skipField(line, pos)
	}
	return vals, nil
}

// Tokenize reads every number on line.
func Tokenize(line string, bitSize int) ([]float64, error) {
	var vals []float64
	pos := 0
	for strings.TrimSpace(line[pos:]) != "" {
		v, err := scanFloat(line[pos:], bitSize)
		if err != nil {
			return vals, &MalformedNumberError{Line: strings.TrimRight(line, "\r\n"), Want: len(vals) + 1, Got: len(vals), Err: err}
		}
		vals = append(vals, v)
		pos = skipField(line, pos)
	}
	return vals, nil
}
