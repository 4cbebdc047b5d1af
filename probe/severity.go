// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import "fmt"

// Severity is a nagios exit code. Aggregation takes the numeric maximum;
// UNKNOWN outranks CRITICAL.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityUnknown
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityUnknown:
		return "UNKNOWN"
	}
	return "UNKNOWN"
}

// ExitCode is the process exit code for the severity.
func (s Severity) ExitCode() int {
	if s < SeverityOK || s > SeverityUnknown {
		return int(SeverityUnknown)
	}
	return int(s)
}

func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "OK", "ok":
		return SeverityOK, nil
	case "WARNING", "warning", "warn":
		return SeverityWarning, nil
	case "CRITICAL", "critical", "crit":
		return SeverityCritical, nil
	case "UNKNOWN", "unknown":
		return SeverityUnknown, nil
	}
	return SeverityUnknown, fmt.Errorf("unrecognized severity '%s'", s)
}

func maxSeverity(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}
