// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"fmt"

	"github.com/willixix/naglio-plugins/pkg/perfdata"
)

// Verdict is the outcome of applying one policy to one metric name.
type Verdict struct {
	Metric   string
	Severity Severity
	Display  string
	Perf     *perfdata.Token
}

// evaluate applies every name-keyed policy, then every pattern policy to
// every stored metric it matches. Name-keyed policies run even when their
// metric is absent; that is what absent actions are for.
func (p *Probe) evaluate() []Verdict {
	var verdicts []Verdict

	for _, pol := range p.registry.Named() {
		verdicts = append(verdicts, p.evaluatePolicy(pol, pol.Name))
	}
	for _, name := range p.store.Names() {
		for _, pol := range p.registry.Patterns() {
			if pol.Pattern.MatchString(name) {
				verdicts = append(verdicts, p.evaluatePolicy(pol, name))
			}
		}
	}

	return verdicts
}

func (p *Probe) evaluatePolicy(pol *Policy, name string) Verdict {
	v := Verdict{Metric: name, Severity: SeverityOK}

	m, ok := p.store.Get(name)
	if ok && !pol.Text && !m.Numeric {
		// a numeric policy cannot compare a text value; same outcome as
		// missing data
		p.Debugf("policy '%s': non-numeric value '%s'", name, m.Text)
		ok = false
	}
	if !ok {
		v.Severity = SeverityUnknown
		if pol.AbsentAction != nil {
			v.Severity = *pol.AbsentAction
		}
		if pol.Display {
			v.Display = name + " not found"
		}
		return v
	}

	switch {
	case m.Numeric && m.Num == 0 && pol.ZeroAction != nil:
		v.Severity = *pol.ZeroAction
	case pol.Crit != nil && pol.Crit.Alerts(m.Num, m.Text):
		v.Severity = SeverityCritical
	case pol.Warn != nil && pol.Warn.Alerts(m.Num, m.Text):
		v.Severity = SeverityWarning
	}

	if pol.Display {
		v.Display = fmt.Sprintf("%s is %s%s", name, m.Format(), pol.UOM)
	}
	if pol.Perf && m.Numeric {
		tok := &perfdata.Token{Name: name, Value: m.Num, UOM: pol.UOM}
		if pol.Counter {
			tok.UOM = "c"
		}
		if pol.Warn != nil {
			tok.Warn = pol.Warn.Perf()
		}
		if pol.Crit != nil {
			tok.Crit = pol.Crit.Perf()
		}
		v.Perf = tok
	}

	return v
}

// aggregate folds the verdicts into the overall severity: the numeric
// maximum of the contributing codes.
func aggregate(verdicts []Verdict) Severity {
	overall := SeverityOK
	for _, v := range verdicts {
		overall = maxSeverity(overall, v.Severity)
	}
	return overall
}
