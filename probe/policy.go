// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/willixix/naglio-plugins/pkg/threshold"
)

var (
	ErrDuplicatePolicy = errors.New("duplicate policy")
	ErrArityMismatch   = errors.New("arity mismatch")
)

// Policy is the configuration governing how one metric name, or every
// metric matching a pattern, is evaluated and displayed.
type Policy struct {
	Name    string
	Pattern *regexp.Regexp

	Warn *threshold.Spec
	Crit *threshold.Spec

	// AbsentAction is the severity for a metric missing from the store;
	// nil means UNKNOWN. ZeroAction, when set, is the severity for a
	// numerically zero value, bypassing threshold comparison.
	AbsentAction *Severity
	ZeroAction   *Severity

	Display bool
	Perf    bool
	UOM     string
	Counter bool
	Text    bool
}

func (p *Policy) selector() string {
	if p.Pattern != nil {
		return p.Pattern.String()
	}
	return p.Name
}

// Registry maps metric names and name-patterns to their policies.
// Name-keyed policies are unique; pattern policies never conflict and are
// all applied in registration order.
type Registry struct {
	names    []string
	byName   map[string]*Policy
	patterns []*Policy
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Policy)}
}

func (r *Registry) Register(p *Policy) error {
	if p.Pattern != nil {
		if p.Name != "" {
			return fmt.Errorf("policy '%s': name and pattern are mutually exclusive", p.Name)
		}
		r.patterns = append(r.patterns, p)
		return nil
	}

	if p.Name == "" {
		return errors.New("policy needs a name or a pattern")
	}
	if _, ok := r.byName[p.Name]; ok {
		return fmt.Errorf("%w: '%s' declared twice", ErrDuplicatePolicy, p.Name)
	}

	r.names = append(r.names, p.Name)
	r.byName[p.Name] = p
	return nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Resolve returns the name-keyed policy for the metric, if any, followed by
// every pattern policy whose pattern matches, in registration order.
func (r *Registry) Resolve(name string) []*Policy {
	var ps []*Policy
	if p, ok := r.byName[name]; ok {
		ps = append(ps, p)
	}
	for _, p := range r.patterns {
		if p.Pattern.MatchString(name) {
			ps = append(ps, p)
		}
	}
	return ps
}

// Named returns the name-keyed policies in registration order.
func (r *Registry) Named() []*Policy {
	ps := make([]*Policy, 0, len(r.names))
	for _, name := range r.names {
		ps = append(ps, r.byName[name])
	}
	return ps
}

func (r *Registry) Patterns() []*Policy { return r.patterns }

func (r *Registry) Len() int { return len(r.names) + len(r.patterns) }
