// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration that unmarshals from "5s"-style strings,
// plain integers (seconds) or floats (seconds).
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return d.Duration().String()
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string

	if err := unmarshal(&s); err != nil {
		return err
	}

	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v

	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	seconds := float64(d) / float64(time.Second)
	return seconds, nil
}

// ParseDuration is the flag-side twin of UnmarshalYAML.
func ParseDuration(s string) (Duration, error) {
	if v, err := time.ParseDuration(s); err == nil {
		return Duration(v), nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(time.Duration(v) * time.Second), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(v * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("unparsable duration format '%s'", s)
}
