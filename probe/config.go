// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/willixix/naglio-plugins/pkg/confopt"
	"github.com/willixix/naglio-plugins/pkg/threshold"
)

const (
	defaultAddress    = "redis://@localhost:6379"
	defaultTimeout    = confopt.Duration(20 * time.Second)
	defaultRateSuffix = "_rate"
)

type Config struct {
	Address  string           `yaml:"address"`
	Username string           `yaml:"username,omitempty"`
	Password string           `yaml:"password,omitempty"`
	Timeout  confopt.Duration `yaml:"timeout,omitempty"`

	// Variables is the generic variable list; parallel Warn/Crit lists
	// must match its length when present. A "&" prefix on a variable
	// requests its rate of change instead of the direct value.
	Variables []string `yaml:"variables,omitempty"`
	Warn      []string `yaml:"warn,omitempty"`
	Crit      []string `yaml:"crit,omitempty"`

	Checks  []CheckConfig `yaml:"checks,omitempty"`
	Queries []string      `yaml:"queries,omitempty"`

	// Named options for the probe's derived metrics, each a "warn,crit"
	// threshold pair.
	Hitrate           string        `yaml:"hitrate,omitempty"`
	MemoryUtilization string        `yaml:"memory_utilization,omitempty"`
	ResponseTime      string        `yaml:"response_time,omitempty"`
	TotalMemory       confopt.Bytes `yaml:"total_memory,omitempty"`

	RatePrefix string `yaml:"rate_prefix,omitempty"`
	RateSuffix string `yaml:"rate_suffix,omitempty"`

	// PrevPerfData is the previous run's performance-data line, supplied
	// by whoever persists it between runs.
	PrevPerfData string `yaml:"-"`
}

// CheckConfig is one generic check declaration, from a --check option or a
// checks file entry. Exactly one of Name/Pattern selects the metric(s).
type CheckConfig struct {
	Name    string `yaml:"name,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Warn    string `yaml:"warn,omitempty"`
	Crit    string `yaml:"crit,omitempty"`
	Absent  string `yaml:"absent,omitempty"`
	Zero    string `yaml:"zero,omitempty"`
	Display *bool  `yaml:"display,omitempty"`
	Perf    *bool  `yaml:"perf,omitempty"`
	UOM     string `yaml:"uom,omitempty"`
	Counter bool   `yaml:"counter,omitempty"`
	Text    bool   `yaml:"text,omitempty"`
	Rate    bool   `yaml:"rate,omitempty"`
}

// ParseCheckSpec parses the --check option form: comma-separated
// key=value pairs plus bare flags, e.g.
// "name=evicted_keys,warn=>100,crit=>500,absent=ok,counter,noperf".
func ParseCheckSpec(spec string) (CheckConfig, error) {
	var cc CheckConfig

	for _, part := range strings.Split(spec, ",") {
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)

		switch key {
		case "name":
			cc.Name = value
		case "pattern":
			cc.Pattern = value
		case "warn":
			cc.Warn = value
		case "crit":
			cc.Crit = value
		case "absent":
			cc.Absent = value
		case "zero":
			cc.Zero = value
		case "uom":
			cc.UOM = value
		case "display", "nodisplay":
			v := key == "display"
			cc.Display = &v
		case "perf", "noperf":
			v := key == "perf"
			cc.Perf = &v
		case "counter":
			cc.Counter = true
		case "text":
			cc.Text = true
		case "rate":
			cc.Rate = true
		case "":
			return cc, fmt.Errorf("check spec '%s': empty element", spec)
		default:
			return cc, fmt.Errorf("check spec '%s': unrecognized key '%s'", spec, key)
		}

		if !hasValue && (key == "name" || key == "pattern" || key == "warn" || key == "crit" ||
			key == "absent" || key == "zero" || key == "uom") {
			return cc, fmt.Errorf("check spec '%s': '%s' needs a value", spec, key)
		}
	}

	if cc.Name == "" && cc.Pattern == "" {
		return cc, fmt.Errorf("check spec '%s': needs name= or pattern=", spec)
	}
	if cc.Name != "" && cc.Pattern != "" {
		return cc, fmt.Errorf("check spec '%s': name= and pattern= are mutually exclusive", spec)
	}

	return cc, nil
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = defaultAddress
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RateSuffix == "" && c.RatePrefix == "" {
		c.RateSuffix = defaultRateSuffix
	}
}

// rateName composes the display name of a rate-derived metric from its
// base name. The "&" request marker never reaches output.
func (c *Config) rateName(base string) string {
	return c.RatePrefix + base + c.RateSuffix
}

type rateRequest struct {
	Base    string
	Name    string
	Counter bool
}

// buildRegistry merges the three policy sources in precedence order:
// generic check declarations, then named long options, then the generic
// variable list carrying implicit defaults from the known-variables table.
// All configuration errors surface here, before any network contact.
func buildRegistry(cfg *Config, vars VarTable) (*Registry, []rateRequest, error) {
	reg := NewRegistry()
	var rates []rateRequest

	for _, cc := range cfg.Checks {
		p, rr, err := policyFromCheck(cfg, cc, vars)
		if err != nil {
			return nil, nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, nil, err
		}
		if rr != nil {
			rates = append(rates, *rr)
		}
	}

	named := []struct {
		name string
		pair string
	}{
		{"hitrate", cfg.Hitrate},
		{"memory_utilization", cfg.MemoryUtilization},
		{"response_time", cfg.ResponseTime},
	}
	for _, no := range named {
		if no.pair == "" || reg.Has(no.name) {
			continue
		}
		warn, crit, _ := strings.Cut(no.pair, ",")
		p, _, err := policyFromCheck(cfg, CheckConfig{Name: no.name, Warn: warn, Crit: crit}, vars)
		if err != nil {
			return nil, nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, nil, err
		}
	}
	if cfg.MemoryUtilization != "" && cfg.TotalMemory == 0 {
		return nil, nil, fmt.Errorf("memory_utilization needs total_memory")
	}

	if len(cfg.Warn) > 0 && len(cfg.Warn) != len(cfg.Variables) {
		return nil, nil, fmt.Errorf("%w: %d variables but %d warning thresholds",
			ErrArityMismatch, len(cfg.Variables), len(cfg.Warn))
	}
	if len(cfg.Crit) > 0 && len(cfg.Crit) != len(cfg.Variables) {
		return nil, nil, fmt.Errorf("%w: %d variables but %d critical thresholds",
			ErrArityMismatch, len(cfg.Variables), len(cfg.Crit))
	}

	for i, raw := range cfg.Variables {
		cc := CheckConfig{Name: raw}
		if strings.HasPrefix(raw, "&") {
			cc.Name = strings.TrimPrefix(raw, "&")
			cc.Rate = true
		}
		if len(cfg.Warn) > 0 {
			cc.Warn = cfg.Warn[i]
		}
		if len(cfg.Crit) > 0 {
			cc.Crit = cfg.Crit[i]
		}

		p, rr, err := policyFromCheck(cfg, cc, vars)
		if err != nil {
			return nil, nil, err
		}
		// the derivation was requested either way; only the policy is
		// subject to precedence
		if rr != nil && !hasRateRequest(rates, rr.Name) {
			rates = append(rates, *rr)
		}
		if reg.Has(p.Name) {
			continue // an explicit check declaration wins
		}
		if err := reg.Register(p); err != nil {
			return nil, nil, err
		}
	}

	return reg, rates, nil
}

func hasRateRequest(rates []rateRequest, name string) bool {
	for _, rr := range rates {
		if rr.Name == name {
			return true
		}
	}
	return false
}

func policyFromCheck(cfg *Config, cc CheckConfig, vars VarTable) (*Policy, *rateRequest, error) {
	p := &Policy{
		Name:    cc.Name,
		UOM:     cc.UOM,
		Counter: cc.Counter,
		Text:    cc.Text,
		Display: true,
		Perf:    true,
	}

	if cc.Pattern != "" {
		re, err := regexp.Compile(cc.Pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("check pattern '%s': %v", cc.Pattern, err)
		}
		p.Pattern = re
	}

	if kv, ok := vars.Lookup(cc.Name); ok {
		p.Text = p.Text || kv.Text
		p.Counter = p.Counter || kv.Counter
		if p.UOM == "" {
			p.UOM = kv.UOM
		}
	}

	var rr *rateRequest
	if cc.Rate {
		if cc.Pattern != "" {
			return nil, nil, fmt.Errorf("check pattern '%s': rate needs a name", cc.Pattern)
		}
		if p.Text {
			return nil, nil, fmt.Errorf("check '%s': rate of a text variable", cc.Name)
		}
		rr = &rateRequest{Base: cc.Name, Name: cfg.rateName(cc.Name), Counter: p.Counter}
		p.Name = rr.Name
		p.Counter = false // the derived value is a gauge
		p.UOM = ""
	}

	warn, err := threshold.Parse(cc.Warn, !p.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("check '%s' warning: %w", p.selector(), err)
	}
	crit, err := threshold.Parse(cc.Crit, !p.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("check '%s' critical: %w", p.selector(), err)
	}
	if err := threshold.CheckOrdering(warn, crit); err != nil {
		return nil, nil, fmt.Errorf("check '%s': %w", p.selector(), err)
	}
	p.Warn, p.Crit = warn, crit

	if cc.Absent != "" {
		sev, err := ParseSeverity(cc.Absent)
		if err != nil {
			return nil, nil, fmt.Errorf("check '%s' absent action: %v", p.selector(), err)
		}
		p.AbsentAction = &sev
	}
	if cc.Zero != "" {
		sev, err := ParseSeverity(cc.Zero)
		if err != nil {
			return nil, nil, fmt.Errorf("check '%s' zero action: %v", p.selector(), err)
		}
		p.ZeroAction = &sev
	}

	if cc.Display != nil {
		p.Display = *cc.Display
	}
	if cc.Perf != nil {
		p.Perf = *cc.Perf
	}
	if p.Text {
		p.Perf = false
	}

	return p, rr, nil
}
