// SPDX-License-Identifier: GPL-3.0-or-later

// Package perfdata encodes and decodes the probe's performance-data line:
// space-separated "name=value[uom];warn;crit" tokens plus a trailing
// "_ptime=<unix-epoch>" token. The decoded previous run's line is what the
// rate calculations are derived from.
package perfdata

import (
	"strconv"
	"strings"
	"time"
)

// TimeKey is the pseudo-metric carrying the collection timestamp.
const TimeKey = "_ptime"

// Set holds the values decoded from one performance-data line, in the
// order they appeared.
type Set struct {
	names  []string
	values map[string]float64

	// Time is the previous collection time, zero when the line carried no
	// usable _ptime token.
	Time time.Time

	// Skipped counts malformed tokens dropped during decoding.
	Skipped int
}

// Decode parses one performance-data line. Decoding is best effort: a
// malformed token is skipped and counted, never fatal.
func Decode(line string) *Set {
	set := &Set{values: make(map[string]float64)}

	for _, tok := range strings.Fields(line) {
		name, rest, ok := strings.Cut(tok, "=")
		if !ok || name == "" || rest == "" {
			set.Skipped++
			continue
		}

		// value;warn;crit;min;max - only the value matters here
		value, _, _ := strings.Cut(rest, ";")

		if name == TimeKey {
			sec, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				set.Skipped++
				continue
			}
			set.Time = time.Unix(sec, 0)
			continue
		}

		v, err := parseValue(value)
		if err != nil {
			set.Skipped++
			continue
		}

		if _, ok := set.values[name]; !ok {
			set.names = append(set.names, name)
		}
		set.values[name] = v
	}

	return set
}

// parseValue strips a trailing unit-of-measure run ("1024MB", "90%",
// "12345c") before converting.
func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, nil
	}

	i := len(s)
	for i > 0 && isUOMByte(s[i-1]) {
		i--
	}
	return strconv.ParseFloat(s[:i], 64)
}

func isUOMByte(b byte) bool {
	return b == '%' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func (s *Set) Len() int { return len(s.names) }

func (s *Set) Names() []string { return s.names }

func (s *Set) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Set) HasTime() bool { return !s.Time.IsZero() }

// Token is one metric prepared for encoding.
type Token struct {
	Name  string
	Value float64
	UOM   string // "c" for counters
	Warn  string
	Crit  string
}

// Encode renders tokens in the given order followed by the _ptime token.
// Values are printed with the shortest exact representation, so a decode of
// the result reproduces them exactly.
func Encode(tokens []Token, now time.Time) string {
	var sb strings.Builder

	for _, tok := range tokens {
		sb.WriteString(tok.Name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(tok.Value, 'f', -1, 64))
		sb.WriteString(tok.UOM)
		if tok.Warn != "" || tok.Crit != "" {
			sb.WriteByte(';')
			sb.WriteString(tok.Warn)
			sb.WriteByte(';')
			sb.WriteString(tok.Crit)
		}
		sb.WriteByte(' ')
	}

	sb.WriteString(TimeKey)
	sb.WriteByte('=')
	sb.WriteString(strconv.FormatInt(now.Unix(), 10))

	return sb.String()
}
