// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v2"
)

func TestParseBytes(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    Bytes
		wantErr bool
	}{
		"bare bytes":      {input: "1024", want: 1024},
		"explicit B":      {input: "1024B", want: 1024},
		"kilobytes":       {input: "4K", want: 4 << 10},
		"megabytes":       {input: "512M", want: 512 << 20},
		"gigabytes":       {input: "2G", want: 2 << 30},
		"lowercase":       {input: "2g", want: 2 << 30},
		"fractional":      {input: "1.5G", want: Bytes(1.5 * float64(1<<30))},
		"empty":           {input: "", wantErr: true},
		"suffix only":     {input: "G", wantErr: true},
		"unknown garbage": {input: "lots", wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := ParseBytes(test.input)

			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, v)
		})
	}
}

func TestBytes_UnmarshalYAML(t *testing.T) {
	tests := map[string]struct {
		input any
		want  Bytes
	}{
		"int":    {input: 2048, want: 2048},
		"string": {input: "1M", want: 1 << 20},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := yaml.Marshal(test.input)
			require.NoError(t, err)

			var b Bytes
			require.NoError(t, yaml.Unmarshal(data, &b))
			assert.Equal(t, test.want, b)
		})
	}
}
