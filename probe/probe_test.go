// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dataVer609InfoAll, _ = os.ReadFile("testdata/info_all.txt")

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataVer609InfoAll": dataVer609InfoAll,
	} {
		require.NotNil(t, data, name)
	}
}

func TestProbe_Init(t *testing.T) {
	tests := map[string]struct {
		config   Config
		wantFail bool
		wantErr  error
	}{
		"success on default config": {
			config: Config{},
		},
		"success on variables with parallel thresholds": {
			config: Config{
				Variables: []string{"connected_clients", "used_memory"},
				Warn:      []string{">100", "~"},
				Crit:      []string{">500", ""},
			},
		},
		"fails on invalid address format": {
			wantFail: true,
			config:   Config{Address: "127.0.0.1:6379"},
		},
		"fails on warn arity mismatch": {
			wantFail: true,
			wantErr:  ErrArityMismatch,
			config: Config{
				Variables: []string{"connected_clients", "used_memory"},
				Warn:      []string{">100"},
			},
		},
		"fails on crit arity mismatch": {
			wantFail: true,
			wantErr:  ErrArityMismatch,
			config: Config{
				Variables: []string{"connected_clients"},
				Crit:      []string{">100", ">200"},
			},
		},
		"fails on duplicate check declaration": {
			wantFail: true,
			wantErr:  ErrDuplicatePolicy,
			config: Config{
				Checks: []CheckConfig{
					{Name: "used_memory", Warn: ">100"},
					{Name: "used_memory", Crit: ">200"},
				},
			},
		},
		"fails on bad threshold syntax": {
			wantFail: true,
			config: Config{
				Variables: []string{"connected_clients"},
				Warn:      []string{">fast"},
			},
		},
		"fails on inverted warn and crit bounds": {
			wantFail: true,
			config: Config{
				Variables: []string{"connected_clients"},
				Warn:      []string{">500"},
				Crit:      []string{">100"},
			},
		},
		"fails on unrecognized query verb": {
			wantFail: true,
			config:   Config{Queries: []string{"FROB,somekey"}},
		},
		"fails on memory utilization without total memory": {
			wantFail: true,
			config:   Config{MemoryUtilization: ">80,>90"},
		},
		"fails on rate of a text variable": {
			wantFail: true,
			config:   Config{Variables: []string{"&master_link_status"}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := New(test.config)

			err := p.Init()
			if !test.wantFail {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
			}
		})
	}
}

func TestProbe_Run(t *testing.T) {
	tests := map[string]struct {
		prepare      func(t *testing.T) *Probe
		wantSeverity Severity
		wantStatus   []string // substrings of the status line
	}{
		"ok on healthy defaults": {
			prepare: func(t *testing.T) *Probe {
				return prepareProbe(t, Config{Hitrate: "<90,<80"}, mockWithFixture())
			},
			wantSeverity: SeverityOK,
			wantStatus:   []string{"hitrate is "},
		},
		"warning on crossed warn threshold": {
			prepare: func(t *testing.T) *Probe {
				cfg := Config{Variables: []string{"connected_clients"}, Warn: []string{">0"}}
				return prepareProbe(t, cfg, mockWithFixture())
			},
			wantSeverity: SeverityWarning,
			wantStatus:   []string{"connected_clients is 1"},
		},
		"critical wins over warning": {
			prepare: func(t *testing.T) *Probe {
				cfg := Config{
					Variables: []string{"connected_clients"},
					Warn:      []string{">0"},
					Crit:      []string{">0"},
				}
				return prepareProbe(t, cfg, mockWithFixture())
			},
			wantSeverity: SeverityCritical,
		},
		"absent metric resolves per policy": {
			prepare: func(t *testing.T) *Probe {
				cfg := Config{Checks: []CheckConfig{{Name: "nonexistent", Absent: "critical"}}}
				return prepareProbe(t, cfg, mockWithFixture())
			},
			wantSeverity: SeverityCritical,
			wantStatus:   []string{"nonexistent not found"},
		},
		"unknown outranks warning": {
			prepare: func(t *testing.T) *Probe {
				cfg := Config{
					Variables: []string{"connected_clients", "no_such_field"},
					Warn:      []string{">0", "~"},
				}
				return prepareProbe(t, cfg, mockWithFixture())
			},
			wantSeverity: SeverityUnknown,
		},
		"query result evaluated like any metric": {
			prepare: func(t *testing.T) *Probe {
				m := mockWithFixture()
				m.lists["jobs"] = []string{"a", "b", "c", "d"}
				return prepareProbe(t, Config{Queries: []string{"LLEN,jobs,>2"}}, m)
			},
			wantSeverity: SeverityWarning,
			wantStatus:   []string{"llen_jobs is 4"},
		},
		"failed query degrades to absent action": {
			prepare: func(t *testing.T) *Probe {
				cfg := Config{
					Queries: []string{"GET,missing"},
					Checks:  []CheckConfig{{Name: "get_missing", Absent: "warning"}},
				}
				return prepareProbe(t, cfg, mockWithFixture())
			},
			wantSeverity: SeverityWarning,
			wantStatus:   []string{"get_missing not found"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := test.prepare(t)

			res := p.Run(context.Background())

			assert.Equal(t, test.wantSeverity, res.Severity)
			for _, want := range test.wantStatus {
				assert.Contains(t, res.Status, want)
			}
		})
	}
}

func TestProbe_Run_ConnectionErrors(t *testing.T) {
	tests := map[string]struct {
		mock *mockRedisClient
	}{
		"ping fails": {mock: &mockRedisClient{pingErr: true}},
		"info fails": {mock: &mockRedisClient{infoErr: true}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := prepareProbe(t, Config{}, test.mock)

			res := p.Run(context.Background())

			assert.Equal(t, SeverityCritical, res.Severity)
			assert.Empty(t, res.PerfData)
		})
	}
}

func TestProbe_Run_Identity(t *testing.T) {
	p := prepareProbe(t, Config{}, mockWithFixture())

	res := p.Run(context.Background())

	assert.True(t, strings.HasPrefix(res.Line(), "OK: Redis 6.0.9 on "), res.Line())
	assert.Contains(t, res.Summary, "has 2 databases (48 keys)")
	assert.Contains(t, res.Summary, ", up 2d 22h")
}

func TestProbe_Run_RateFromPreviousSample(t *testing.T) {
	ptime := time.Now().Add(-100 * time.Second).Unix()
	cfg := Config{
		Variables:    []string{"&total_commands_processed"},
		Warn:         []string{"<0.5"},
		Crit:         []string{">100"},
		PrevPerfData: fmt.Sprintf("total_commands_processed=161231c _ptime=%d", ptime),
	}
	p := prepareProbe(t, cfg, mockWithFixture())

	res := p.Run(context.Background())

	// (161331-161231)/~100s is ~1 command/s
	assert.Equal(t, SeverityOK, res.Severity)
	assert.Contains(t, res.Status, "total_commands_processed_rate is ")
	assert.Contains(t, res.PerfData, "total_commands_processed_rate=")
	// the base counter is carried so the next run can derive a rate too
	assert.Contains(t, res.PerfData, "total_commands_processed=161331c")
	assert.Contains(t, res.PerfData, "_ptime=")
}

func TestProbe_Run_RateDerivedUnderExplicitCheck(t *testing.T) {
	ptime := time.Now().Add(-100 * time.Second).Unix()
	cfg := Config{
		Variables: []string{"&total_commands_processed"},
		Checks: []CheckConfig{
			{Name: "total_commands_processed_rate", Warn: ">10", Crit: ">100"},
		},
		PrevPerfData: fmt.Sprintf("total_commands_processed=161231c _ptime=%d", ptime),
	}
	p := prepareProbe(t, cfg, mockWithFixture())

	res := p.Run(context.Background())

	// the check declaration customizes the thresholds, it does not cancel
	// the derivation
	assert.Equal(t, SeverityOK, res.Severity)
	assert.Contains(t, res.Status, "total_commands_processed_rate is ")
	assert.NotContains(t, res.Status, "not found")
	assert.Contains(t, res.PerfData, "total_commands_processed_rate=")
	assert.Contains(t, res.PerfData, "total_commands_processed=161331c")
}

func TestProbe_Run_RateWithoutPreviousSampleIsAbsent(t *testing.T) {
	cfg := Config{
		Variables: []string{"&total_commands_processed"},
		Checks: []CheckConfig{
			{Name: "total_commands_processed_rate", Absent: "ok"},
		},
	}
	p := New(cfg)
	require.NoError(t, p.Init())
	p.rdb = mockWithFixture()

	res := p.Run(context.Background())

	assert.Equal(t, SeverityOK, res.Severity)
	assert.Contains(t, res.Status, "total_commands_processed_rate not found")
}

func TestProbe_Cleanup(t *testing.T) {
	p := New(Config{})
	assert.NotPanics(t, func() { p.Cleanup() })

	require.NoError(t, p.Init())
	m := mockWithFixture()
	p.rdb = m

	p.Cleanup()

	assert.True(t, m.calledClose)
	assert.Nil(t, p.rdb)
}

func prepareProbe(t *testing.T, cfg Config, m *mockRedisClient) *Probe {
	t.Helper()
	p := New(cfg)
	require.NoError(t, p.Init())
	p.rdb = m
	p.server = "127.0.0.1:6379"
	return p
}

func mockWithFixture() *mockRedisClient {
	return &mockRedisClient{
		info:    string(dataVer609InfoAll),
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][]string),
		sets:    make(map[string][]string),
		zsets:   make(map[string][]redis.Z),
	}
}

type mockRedisClient struct {
	info    string
	infoErr bool
	pingErr bool

	strings map[string]string
	hashes  map[string]map[string]string
	lists   map[string][]string
	sets    map[string][]string
	zsets   map[string][]redis.Z

	calledClose bool
}

func (m *mockRedisClient) Info(_ context.Context, _ ...string) *redis.StringCmd {
	if m.infoErr {
		return redis.NewStringResult("", errors.New("mock info error"))
	}
	return redis.NewStringResult(m.info, nil)
}

func (m *mockRedisClient) Ping(_ context.Context) *redis.StatusCmd {
	if m.pingErr {
		return redis.NewStatusResult("", errors.New("mock ping error"))
	}
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockRedisClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedisClient) LLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *mockRedisClient) HLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(m.hashes[key])), nil)
}

func (m *mockRedisClient) SCard(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(m.sets[key])), nil)
}

func (m *mockRedisClient) ZCard(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(m.zsets[key])), nil)
}

func (m *mockRedisClient) HGet(_ context.Context, key, field string) *redis.StringCmd {
	v, ok := m.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedisClient) HExists(_ context.Context, key, field string) *redis.BoolCmd {
	_, ok := m.hashes[key][field]
	return redis.NewBoolResult(ok, nil)
}

func (m *mockRedisClient) SIsMember(_ context.Context, key string, member any) *redis.BoolCmd {
	want := fmt.Sprintf("%v", member)
	for _, v := range m.sets[key] {
		if v == want {
			return redis.NewBoolResult(true, nil)
		}
	}
	return redis.NewBoolResult(false, nil)
}

func (m *mockRedisClient) LRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return redis.NewStringSliceResult(nil, nil)
	}
	return redis.NewStringSliceResult(list[start:stop+1], nil)
}

func (m *mockRedisClient) ZRangeByScoreWithScores(_ context.Context, key string, opt *redis.ZRangeBy) *redis.ZSliceCmd {
	parseBound := func(s string, def float64) float64 {
		switch s {
		case "-inf":
			return math.Inf(-1)
		case "+inf", "inf":
			return math.Inf(1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return v
	}
	lo := parseBound(opt.Min, math.Inf(-1))
	hi := parseBound(opt.Max, math.Inf(1))

	var out []redis.Z
	for _, z := range m.zsets[key] {
		if z.Score >= lo && z.Score <= hi {
			out = append(out, z)
		}
	}
	return redis.NewZSliceCmdResult(out, nil)
}

func (m *mockRedisClient) Close() error {
	m.calledClose = true
	return nil
}
