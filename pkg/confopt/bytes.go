// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"fmt"
	"strconv"
	"strings"
)

// Bytes is a memory size that unmarshals from plain integers (bytes) or
// from values with a B/K/M/G suffix ("512M", "2G", "1.5G").
type Bytes int64

func (b Bytes) Bytes() int64 { return int64(b) }

func (b Bytes) String() string { return strconv.FormatInt(int64(b), 10) }

func (b *Bytes) UnmarshalYAML(unmarshal func(any) error) error {
	var s string

	if err := unmarshal(&s); err != nil {
		return err
	}

	v, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = v

	return nil
}

func (b Bytes) MarshalYAML() (any, error) {
	return int64(b), nil
}

var byteUnits = map[byte]int64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// ParseBytes is the flag-side twin of UnmarshalYAML.
func ParseBytes(s string) (Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size value")
	}

	mul := int64(1)
	if m, ok := byteUnits[strings.ToUpper(s)[len(s)-1]]; ok {
		mul = m
		s = s[:len(s)-1]
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Bytes(v * mul), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Bytes(v * float64(mul)), nil
	}

	return 0, fmt.Errorf("unparsable size format '%s'", s)
}
