// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddValue(t *testing.T) {
	tests := map[string]struct {
		value       string
		wantNumeric bool
		wantNum     float64
	}{
		"integer":        {value: "42", wantNumeric: true, wantNum: 42},
		"float":          {value: "3.14", wantNumeric: true, wantNum: 3.14},
		"scientific":     {value: "1e3", wantNumeric: true, wantNum: 1000},
		"text":           {value: "master", wantNumeric: false},
		"mixed":          {value: "6.0.9", wantNumeric: false},
		"empty":          {value: "", wantNumeric: false},
		"negative value": {value: "-1", wantNumeric: true, wantNum: -1},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			s.AddValue("field", test.value, SourceDirect)

			m, ok := s.Get("field")
			require.True(t, ok)
			assert.Equal(t, test.wantNumeric, m.Numeric)
			if test.wantNumeric {
				assert.Equal(t, test.wantNum, m.Num)
			}
			assert.Equal(t, test.value, m.Text)
		})
	}
}

func TestStore_OverwriteKeepsPosition(t *testing.T) {
	s := NewStore()
	s.AddNum("a", 1, SourceDirect)
	s.AddNum("b", 2, SourceDirect)
	s.AddNum("a", 10, SourceQuery)

	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.Equal(t, 2, s.Len())

	m, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(10), m.Num)
	assert.Equal(t, SourceQuery, m.Source)
}

func TestMetric_Format(t *testing.T) {
	tests := map[string]struct {
		metric Metric
		want   string
	}{
		"observed text wins":  {metric: Metric{Num: 1, Text: "1", Numeric: true}, want: "1"},
		"computed number":     {metric: Metric{Num: 95.5, Numeric: true}, want: "95.5"},
		"shortest exact form": {metric: Metric{Num: 100, Numeric: true}, want: "100"},
		"plain text":          {metric: Metric{Text: "master"}, want: "master"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, test.metric.Format())
		})
	}
}
