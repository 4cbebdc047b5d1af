// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	tests := map[string]struct {
		policies []*Policy
		wantFail bool
		wantErr  error
	}{
		"named policies with distinct names": {
			policies: []*Policy{{Name: "a"}, {Name: "b"}},
		},
		"same name twice": {
			policies: []*Policy{{Name: "a"}, {Name: "a"}},
			wantFail: true,
			wantErr:  ErrDuplicatePolicy,
		},
		"identical patterns never conflict": {
			policies: []*Policy{
				{Pattern: regexp.MustCompile("^db")},
				{Pattern: regexp.MustCompile("^db")},
			},
		},
		"name and pattern together": {
			policies: []*Policy{{Name: "a", Pattern: regexp.MustCompile("^a")}},
			wantFail: true,
		},
		"neither name nor pattern": {
			policies: []*Policy{{}},
			wantFail: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()

			var err error
			for _, p := range test.policies {
				if err = reg.Register(p); err != nil {
					break
				}
			}

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

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	named := &Policy{Name: "db0_keys"}
	first := &Policy{Pattern: regexp.MustCompile(`^db\d+_keys$`)}
	second := &Policy{Pattern: regexp.MustCompile(`_keys$`)}
	require.NoError(t, reg.Register(named))
	require.NoError(t, reg.Register(first))
	require.NoError(t, reg.Register(second))

	assert.Equal(t, []*Policy{named, first, second}, reg.Resolve("db0_keys"))
	assert.Equal(t, []*Policy{second}, reg.Resolve("total_keys"))
	assert.Empty(t, reg.Resolve("uptime_in_seconds"))
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_NamedKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(&Policy{Name: name}))
	}

	var got []string
	for _, p := range reg.Named() {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}
