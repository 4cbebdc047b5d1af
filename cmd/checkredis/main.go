// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/willixix/naglio-plugins/cli"
	"github.com/willixix/naglio-plugins/logger"
	"github.com/willixix/naglio-plugins/pkg/confopt"
	"github.com/willixix/naglio-plugins/probe"
)

var version = "devel" // set at build time

func main() {
	opt := parseCLI()

	if opt.Version {
		fmt.Printf("checkredis, version: %s\n", version)
		return
	}

	if opt.Verbose {
		logger.Level.Set(slog.LevelDebug)
	}

	cfg, err := buildConfig(opt)
	if err != nil {
		exitUsage(err)
	}

	p := probe.New(*cfg)
	if err := p.Init(); err != nil {
		exitUsage(err)
	}
	defer p.Cleanup()

	// p.Timeout carries the applied default when no flag or file set one
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout.Duration())
	defer cancel()

	done := make(chan *probe.Result, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case res := <-done:
		fmt.Println(res.Line())
		os.Exit(res.Severity.ExitCode())
	case <-ctx.Done():
		// abandon the in-flight call; there is no partial-result salvage
		fmt.Printf("UNKNOWN: timed out after %s\n", p.Timeout)
		os.Exit(probe.SeverityUnknown.ExitCode())
	}
}

func parseCLI() *cli.Option {
	opt, err := cli.Parse(os.Args)
	if err != nil {
		if cli.IsHelp(err) {
			os.Exit(0)
		}
		os.Exit(probe.SeverityUnknown.ExitCode())
	}

	return opt
}

func exitUsage(err error) {
	fmt.Printf("UNKNOWN: %v\n", err)
	fmt.Println("run with --help for usage")
	os.Exit(probe.SeverityUnknown.ExitCode())
}

func buildConfig(opt *cli.Option) (*probe.Config, error) {
	cfg := &probe.Config{}

	if opt.ChecksFile != "" {
		data, err := os.ReadFile(opt.ChecksFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("checks file '%s': %v", opt.ChecksFile, err)
		}
	}

	switch {
	case opt.Address != "":
		cfg.Address = opt.Address
	case cfg.Address == "":
		cfg.Address = fmt.Sprintf("redis://@%s:%d", opt.Hostname, opt.Port)
	}
	if opt.Username != "" {
		cfg.Username = opt.Username
	}
	if opt.Password != "" {
		cfg.Password = opt.Password
	}
	if opt.Timeout != "" {
		d, err := confopt.ParseDuration(opt.Timeout)
		if err != nil {
			return nil, err
		}
		cfg.Timeout = d
	}

	if opt.Variables != "" {
		cfg.Variables = splitList(opt.Variables)
	}
	if opt.Warn != "" {
		cfg.Warn = splitList(opt.Warn)
	}
	if opt.Crit != "" {
		cfg.Crit = splitList(opt.Crit)
	}

	for _, spec := range opt.Checks {
		cc, err := probe.ParseCheckSpec(spec)
		if err != nil {
			return nil, err
		}
		cfg.Checks = append(cfg.Checks, cc)
	}
	cfg.Queries = append(cfg.Queries, opt.Queries...)

	if opt.Hitrate != "" {
		cfg.Hitrate = opt.Hitrate
	}
	if opt.MemoryUtilization != "" {
		cfg.MemoryUtilization = opt.MemoryUtilization
	}
	if opt.ResponseTime != "" {
		cfg.ResponseTime = opt.ResponseTime
	}
	if opt.TotalMemory != "" {
		b, err := confopt.ParseBytes(opt.TotalMemory)
		if err != nil {
			return nil, err
		}
		cfg.TotalMemory = b
	}

	if opt.PrevPerfData != "" {
		cfg.PrevPerfData = opt.PrevPerfData
	}
	if opt.RatePrefix != "" {
		cfg.RatePrefix = opt.RatePrefix
	}
	if opt.RateSuffix != "" {
		cfg.RateSuffix = opt.RateSuffix
	}

	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
