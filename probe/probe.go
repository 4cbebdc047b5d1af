// SPDX-License-Identifier: GPL-3.0-or-later

// Package probe implements the threshold-evaluation engine behind the
// check: it loads server status fields and query results into a metric
// store, derives rates from the previous run's performance data, applies
// per-metric policies and folds the verdicts into one status line and exit
// severity.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver/v4"

	"github.com/willixix/naglio-plugins/logger"
	"github.com/willixix/naglio-plugins/pkg/perfdata"
)

type Probe struct {
	*logger.Logger
	Config

	vars     VarTable
	registry *Registry
	rates    []rateRequest
	queries  []*Query
	prev     *perfdata.Set
	store    *Store

	rdb     redisClient
	server  string
	version *semver.Version
}

func New(cfg Config) *Probe {
	cfg.applyDefaults()
	return &Probe{
		Logger: logger.New().With("check", "redis"),
		Config: cfg,
		vars:   DefaultVars(),
		store:  NewStore(),
	}
}

// Init validates the configuration and compiles every policy and query.
// All configuration errors surface here, before any connection is made.
func (p *Probe) Init() error {
	if p.Address == "" {
		return errors.New("'address' not set")
	}

	reg, rates, err := buildRegistry(&p.Config, p.vars)
	if err != nil {
		return err
	}
	p.registry, p.rates = reg, rates

	for _, spec := range p.Queries {
		q, err := ParseQuery(spec)
		if err != nil {
			return err
		}
		p.queries = append(p.queries, q)

		if p.registry.Has(q.Name) {
			continue
		}
		pol, _, err := policyFromCheck(&p.Config, CheckConfig{Name: q.Name, Warn: q.Warn, Crit: q.Crit}, p.vars)
		if err != nil {
			return err
		}
		if err := p.registry.Register(pol); err != nil {
			return err
		}
	}

	if p.PrevPerfData != "" {
		p.prev = perfdata.Decode(p.PrevPerfData)
		if p.prev.Skipped > 0 {
			p.Debugf("previous performance data: skipped %d malformed tokens", p.prev.Skipped)
		}
	}

	rdb, err := p.initRedisClient()
	if err != nil {
		return fmt.Errorf("init redis client: %v", err)
	}
	p.rdb = rdb

	return nil
}

// Result is one finished run: the line to print and the exit severity.
// PerfData doubles as the next run's previous-sample input.
type Result struct {
	Severity Severity
	Summary  string
	Status   string
	PerfData string
}

func (r *Result) Line() string {
	line := r.Severity.String() + ": " + r.Summary
	if r.Status != "" {
		line += " - " + r.Status
	}
	if r.PerfData != "" {
		line += " | " + r.PerfData
	}
	return line
}

// Run performs one synchronous collection and evaluation pass. Connection
// failures on the primary status fetch are fatal for the run; per-query
// failures degrade to the affected policy's absent action.
func (p *Probe) Run(ctx context.Context) *Result {
	now := time.Now()

	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return &Result{
			Severity: SeverityCritical,
			Summary:  fmt.Sprintf("connection error on %s: %v", p.server, err),
		}
	}
	p.store.AddNum("response_time", time.Since(now).Seconds(), SourceDirect)

	info, err := p.rdb.Info(ctx, "all").Result()
	if err != nil {
		return &Result{
			Severity: SeverityCritical,
			Summary:  fmt.Sprintf("error fetching status from %s: %v", p.server, err),
		}
	}
	p.collectInfo(info)

	for _, q := range p.queries {
		if err := p.runQuery(ctx, q); err != nil {
			p.Warningf("query '%s': %v", q.Name, err)
		}
	}

	p.computeRates(now, p.prev)

	verdicts := p.evaluate()

	var texts []string
	tokens := make([]perfdata.Token, 0, len(verdicts))
	seen := make(map[string]bool)
	for _, v := range verdicts {
		if v.Display != "" {
			texts = append(texts, v.Display)
		}
		if v.Perf != nil && !seen[v.Perf.Name] {
			seen[v.Perf.Name] = true
			tokens = append(tokens, *v.Perf)
		}
	}
	tokens = p.appendCarryTokens(tokens, seen)

	return &Result{
		Severity: aggregate(verdicts),
		Summary:  p.identity(),
		Status:   strings.Join(texts, ", "),
		PerfData: perfdata.Encode(tokens, now),
	}
}

// appendCarryTokens adds the base counters the next run needs for rate and
// interval hit-rate derivation, when no policy already exports them.
func (p *Probe) appendCarryTokens(tokens []perfdata.Token, seen map[string]bool) []perfdata.Token {
	carry := make([]string, 0, len(p.rates)+2)
	counters := make(map[string]bool)
	for _, rr := range p.rates {
		carry = append(carry, rr.Base)
		counters[rr.Base] = rr.Counter
	}
	if p.registry.Has("hitrate") {
		carry = append(carry, "keyspace_hits", "keyspace_misses")
		counters["keyspace_hits"] = true
		counters["keyspace_misses"] = true
	}

	for _, name := range carry {
		if seen[name] {
			continue
		}
		m, ok := p.store.Get(name)
		if !ok || !m.Numeric {
			continue
		}
		seen[name] = true
		tok := perfdata.Token{Name: name, Value: m.Num}
		if counters[name] {
			tok.UOM = "c"
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func (p *Probe) identity() string {
	version := "unknown"
	if p.version != nil {
		version = p.version.String()
	}

	var databases, keys float64
	if m, ok := p.store.Get("databases"); ok {
		databases = m.Num
	}
	if m, ok := p.store.Get("total_keys"); ok {
		keys = m.Num
	}

	var up string
	if m, ok := p.store.Get("uptime_in_seconds"); ok && m.Numeric {
		up = ", up " + fmtUptime(m.Num)
	}

	return fmt.Sprintf("Redis %s on %s has %.0f databases (%.0f keys)%s",
		version, p.server, databases, keys, up)
}

func fmtUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func (p *Probe) Cleanup() {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Close(); err != nil {
		p.Warningf("cleanup: error on closing redis client [%s]: %v", p.Address, err)
	}
	p.rdb = nil
}
