// SPDX-License-Identifier: GPL-3.0-or-later

// Package threshold implements the alerting rule mini-language used by the
// probe: ">100", "<50", "=idle", "!down", "10:20" (alert outside),
// "@10:20" (alert inside), "~" (record only). A "^" prefix disables
// warn/crit ordering validation for the rule.
package threshold

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	None Kind = iota
	Above
	Below
	Equal
	NotEqual
	OutsideRange
	InsideRange
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Above:
		return "above"
	case Below:
		return "below"
	case Equal:
		return "equal"
	case NotEqual:
		return "not_equal"
	case OutsideRange:
		return "outside_range"
	case InsideRange:
		return "inside_range"
	}
	return "unknown"
}

// InvalidError describes a threshold expression that cannot be parsed or a
// warn/crit pair whose bounds are ordered the wrong way round.
type InvalidError struct {
	Input  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid threshold '%s': %s", e.Input, e.Reason)
}

func invalid(input, format string, a ...any) error {
	return &InvalidError{Input: input, Reason: fmt.Sprintf(format, a...)}
}

// Spec is one parsed threshold rule. Immutable after Parse.
type Spec struct {
	Kind Kind

	// Lo is the single bound for Above/Below and the numeric bound for
	// Equal/NotEqual; Lo/Hi are the range bounds.
	Lo float64
	Hi float64

	// Text is the bound for Equal/NotEqual on text metrics.
	Text string

	Numeric         bool
	EnforceOrdering bool
}

// Parse parses one threshold expression. numeric declares the value type of
// the metric the rule will be applied to.
func Parse(input string, numeric bool) (*Spec, error) {
	s := input
	sp := &Spec{Numeric: numeric, EnforceOrdering: true}

	if strings.HasPrefix(s, "^") {
		sp.EnforceOrdering = false
		s = s[1:]
	}

	if s == "" || s == "~" {
		sp.Kind = None
		return sp, nil
	}

	if strings.HasPrefix(s, "@") {
		sp.Kind = InsideRange
		if err := parseRange(input, s[1:], sp, false); err != nil {
			return nil, err
		}
		return sp, nil
	}

	if strings.ContainsRune(s, ':') {
		sp.Kind = OutsideRange
		if err := parseRange(input, s, sp, true); err != nil {
			return nil, err
		}
		return sp, nil
	}

	switch s[0] {
	case '>':
		sp.Kind = Above
		return sp, parseBound(input, s[1:], sp)
	case '<':
		sp.Kind = Below
		return sp, parseBound(input, s[1:], sp)
	case '=':
		sp.Kind = Equal
		return sp, parseBound(input, s[1:], sp)
	case '!':
		sp.Kind = NotEqual
		return sp, parseBound(input, s[1:], sp)
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		sp.Kind = Above
		return sp, parseBound(input, s, sp)
	}

	sp.Kind = Equal
	return sp, parseBound(input, s, sp)
}

// parseRange fills Lo/Hi from "lo:hi". The open forms "~:hi" and "lo:" are
// accepted only for the outside kind (openEnds), where they degrade to
// Above/Below. That keeps String() round-trippable.
func parseRange(input, s string, sp *Spec, openEnds bool) error {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return invalid(input, "range must be two colon-separated values")
	}
	lo, hi := parts[0], parts[1]

	if openEnds && lo == "~" && hi != "" {
		sp.Kind = Above
		return parseBound(input, hi, sp)
	}
	if openEnds && hi == "" && lo != "" && lo != "~" {
		sp.Kind = Below
		return parseBound(input, lo, sp)
	}

	vlo, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return invalid(input, "range start '%s' is not a number", lo)
	}
	vhi, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return invalid(input, "range end '%s' is not a number", hi)
	}
	if vlo > vhi {
		return invalid(input, "range start %v is above range end %v", vlo, vhi)
	}

	sp.Lo, sp.Hi = vlo, vhi
	return nil
}

func parseBound(input, s string, sp *Spec) error {
	if s == "" {
		return invalid(input, "missing bound")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		sp.Lo = v
		sp.Text = s
		return nil
	}
	if sp.Numeric {
		return invalid(input, "bound '%s' is not a number", s)
	}
	if sp.Kind == Above || sp.Kind == Below {
		return invalid(input, "ordering comparison needs a numeric bound")
	}

	sp.Text = s
	return nil
}

// String renders the rule in the normalized two-number range notation:
// Above b -> "~:b", Below b -> "b:", ranges keep their "lo:hi" / "@lo:hi"
// forms. Equality rules keep their "=v" / "!v" forms, "record only" renders
// as "~". Parsing the result yields an equivalent Spec.
func (s *Spec) String() string {
	var pfx string
	if !s.EnforceOrdering {
		pfx = "^"
	}

	switch s.Kind {
	case None:
		return pfx + "~"
	case Above:
		return pfx + "~:" + s.bound()
	case Below:
		return pfx + s.bound() + ":"
	case Equal:
		return pfx + "=" + s.bound()
	case NotEqual:
		return pfx + "!" + s.bound()
	case OutsideRange:
		return pfx + formatNum(s.Lo) + ":" + formatNum(s.Hi)
	case InsideRange:
		return pfx + "@" + formatNum(s.Lo) + ":" + formatNum(s.Hi)
	}
	return pfx + "~"
}

// Perf renders the rule for a performance-data warn/crit field. Equality
// rules have no range representation and render empty.
func (s *Spec) Perf() string {
	switch s.Kind {
	case None, Equal, NotEqual:
		return ""
	case Above:
		return "~:" + s.bound()
	case Below:
		return s.bound() + ":"
	case OutsideRange:
		return formatNum(s.Lo) + ":" + formatNum(s.Hi)
	case InsideRange:
		return "@" + formatNum(s.Lo) + ":" + formatNum(s.Hi)
	}
	return ""
}

func (s *Spec) bound() string {
	if s.Numeric || s.Text == "" {
		return formatNum(s.Lo)
	}
	return s.Text
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Alerts reports whether the rule fires for the given value. num carries
// the value for numeric metrics, text for text metrics.
func (s *Spec) Alerts(num float64, text string) bool {
	switch s.Kind {
	case None:
		return false
	case Above:
		return num > s.Lo
	case Below:
		return num < s.Lo
	case Equal:
		if s.Numeric {
			return num == s.Lo
		}
		return text == s.Text
	case NotEqual:
		if s.Numeric {
			return num != s.Lo
		}
		return text != s.Text
	case OutsideRange:
		return num < s.Lo || num > s.Hi
	case InsideRange:
		return s.Lo <= num && num <= s.Hi
	}
	return false
}

// CheckOrdering validates that a warn bound is not more permissive than its
// crit bound for same-direction single-bound rules. A "^" on either rule
// skips the check.
func CheckOrdering(warn, crit *Spec) error {
	if warn == nil || crit == nil {
		return nil
	}
	if !warn.EnforceOrdering || !crit.EnforceOrdering {
		return nil
	}
	if !warn.Numeric || !crit.Numeric || warn.Kind != crit.Kind {
		return nil
	}

	switch warn.Kind {
	case Above:
		if warn.Lo > crit.Lo {
			return invalid(warn.String(), "warning bound %v is above critical bound %v", warn.Lo, crit.Lo)
		}
	case Below:
		if warn.Lo < crit.Lo {
			return invalid(warn.String(), "warning bound %v is below critical bound %v", warn.Lo, crit.Lo)
		}
	}

	return nil
}
