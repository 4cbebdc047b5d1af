// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"
)

// Option defines command line options.
type Option struct {
	Hostname string `short:"H" long:"hostname" description:"server hostname" default:"localhost"`
	Port     int    `short:"p" long:"port" description:"server port" default:"6379"`
	Address  string `long:"address" description:"full redis:// address, overrides hostname/port"`
	Username string `long:"username" description:"authentication username"`
	Password string `short:"x" long:"password" description:"authentication password"`
	Timeout  string `short:"t" long:"timeout" description:"hard deadline for the whole run (default 20s)"`

	Variables string   `short:"a" long:"variables" description:"comma-separated variable list; a & prefix requests the variable's rate of change"`
	Warn      string   `short:"w" long:"warn" description:"comma-separated warning thresholds, parallel to the variable list"`
	Crit      string   `short:"c" long:"crit" description:"comma-separated critical thresholds, parallel to the variable list"`
	Checks    []string `short:"o" long:"check" description:"generic check declaration, e.g. name=evicted_keys,warn=>100,crit=>500"`
	Queries   []string `short:"q" long:"query" description:"data query: VERB,key[,arg][,warn][,crit]"`

	Hitrate           string `short:"R" long:"hitrate" description:"warn,crit thresholds for the keyspace hit rate"`
	MemoryUtilization string `short:"m" long:"memory-utilization" description:"warn,crit thresholds for memory utilization (needs --total-memory)"`
	ResponseTime      string `short:"r" long:"response-time" description:"warn,crit thresholds for the ping response time"`
	TotalMemory       string `short:"M" long:"total-memory" description:"total server memory with B/K/M/G suffix"`

	PrevPerfData string `short:"P" long:"prev-perfdata" description:"performance data emitted by the previous run"`
	RatePrefix   string `long:"rate-prefix" description:"display-name prefix for rate-derived metrics"`
	RateSuffix   string `long:"rate-suffix" description:"display-name suffix for rate-derived metrics (default _rate)"`

	ChecksFile string `short:"f" long:"checks-file" description:"YAML file with address and check declarations"`
	Verbose    bool   `short:"v" long:"verbose" description:"verbose (debug) logging"`
	Version    bool   `short:"V" long:"version" description:"display the version and exit"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "checkredis"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
