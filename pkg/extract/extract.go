// Package extract pulls individual fields out of speaker responses without a
// full JSON decode.
//
// Speaker firmware answers with small, mostly flat payloads and occasionally
// truncates them at the receive buffer boundary. A strict decoder would reject
// the whole response in that case, while the fields before the cut are still
// usable. The functions here locate a single key and read only its value.
//
// This is not a general purpose parser and must not be used on untrusted input
// where correctness matters beyond "field available this cycle or not".
package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// String returns the value of key. Quoted strings are returned without quotes,
// nested objects and arrays verbatim, and scalars as their trimmed token.
func String(buf []byte, key string) (string, error) {
	v, err := locate(string(buf), key)
	if err != nil {
		return "", err
	}
	return v.text, nil
}

// Number returns the numeric value of key. The whole scalar token must parse;
// any trailing character fails the extraction.
func Number(buf []byte, key string) (float64, error) {
	v, err := locate(string(buf), key)
	if err != nil {
		return 0, err
	}
	if v.kind != kindScalar {
		return 0, errors.Parsef("field %q is not a number", key)
	}

	f, perr := strconv.ParseFloat(v.text, 64)
	if perr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Parsef("field %q has malformed number %q", key, v.text)
	}
	return f, nil
}

// Boolean returns the boolean value of key. When the value is not a literal
// true/false token it falls back to the nearest true or false following the
// key anywhere in buf.
func Boolean(buf []byte, key string) (bool, error) {
	s := string(buf)

	v, err := locate(s, key)
	if err == nil && v.kind == kindScalar {
		switch v.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}

	return looseBoolean(s, key)
}

func looseBoolean(s, key string) (bool, error) {
	idx := strings.Index(s, `"`+key+`"`)
	if idx < 0 {
		return false, errors.NotFoundf("field %q", key)
	}
	rest := s[idx+len(key)+2:]

	t := strings.Index(rest, "true")
	f := strings.Index(rest, "false")
	switch {
	case t < 0 && f < 0:
		return false, errors.Parsef("field %q has no boolean value", key)
	case f < 0:
		return true, nil
	case t < 0:
		return false, nil
	default:
		return t < f, nil
	}
}

type valueKind int

const (
	kindScalar valueKind = iota
	kindString
	kindComposite
)

type value struct {
	kind valueKind
	text string
}

func locate(s, key string) (value, error) {
	pattern := `"` + key + `":`
	idx := strings.Index(s, pattern)
	if idx < 0 {
		return value{}, errors.NotFoundf("field %q", key)
	}

	i := skipSpace(s, idx+len(pattern))
	if i >= len(s) {
		return value{}, errors.Parsef("field %q truncated", key)
	}

	switch c := s[i]; {
	case c == '"':
		end := closingQuote(s, i+1)
		if end < 0 {
			return value{}, errors.Parsef("field %q has unterminated string", key)
		}
		return value{kind: kindString, text: s[i+1 : end]}, nil

	case c == '{' || c == '[':
		end := balancedEnd(s, i)
		if end < 0 {
			return value{}, errors.Parsef("field %q has unbalanced %c", key, c)
		}
		return value{kind: kindComposite, text: s[i : end+1]}, nil

	case c == '-' || c == 't' || c == 'f' || c == 'n' || (c >= '0' && c <= '9'):
		end := strings.IndexAny(s[i:], ",}]")
		if end < 0 {
			return value{}, errors.Parsef("field %q truncated", key)
		}
		return value{kind: kindScalar, text: strings.TrimSpace(s[i : i+end])}, nil

	default:
		return value{}, errors.Parsef("field %q has unexpected character %q", key, c)
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

// closingQuote returns the index of the quote ending a string whose body starts at i.
func closingQuote(s string, i int) int {
	for ; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// balancedEnd returns the index of the bracket closing the one at start.
func balancedEnd(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			end := closingQuote(s, i+1)
			if end < 0 {
				return -1
			}
			i = end
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
