// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import "strconv"

// Source records how a metric entered the store.
type Source int

const (
	SourceDirect Source = iota
	SourceDerivedRate
	SourceQuery
)

// Metric is one observed or derived data point. Read-only once added.
type Metric struct {
	Name    string
	Num     float64
	Text    string
	Numeric bool
	Source  Source
}

// Format renders the value for display: the original text when one was
// observed, the shortest exact form for computed numbers.
func (m Metric) Format() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Numeric {
		return strconv.FormatFloat(m.Num, 'f', -1, 64)
	}
	return ""
}

// Store is an insertion-ordered name->Metric map. Adding an existing name
// overwrites the value but keeps the original position; defaults rely on
// this last-write-wins behavior.
type Store struct {
	names   []string
	metrics map[string]Metric
}

func NewStore() *Store {
	return &Store{metrics: make(map[string]Metric)}
}

func (s *Store) Add(m Metric) {
	if _, ok := s.metrics[m.Name]; !ok {
		s.names = append(s.names, m.Name)
	}
	s.metrics[m.Name] = m
}

// AddValue stores a raw string value, numeric when it parses as a number.
func (s *Store) AddValue(name, value string, src Source) {
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		s.Add(Metric{Name: name, Num: v, Text: value, Numeric: true, Source: src})
		return
	}
	s.Add(Metric{Name: name, Text: value, Source: src})
}

func (s *Store) AddNum(name string, v float64, src Source) {
	s.Add(Metric{Name: name, Num: v, Numeric: true, Source: src})
}

// Get never fails; absence is an ordinary outcome handled by policy.
func (s *Store) Get(name string) (Metric, bool) {
	m, ok := s.metrics[name]
	return m, ok
}

func (s *Store) Names() []string { return s.names }

func (s *Store) Len() int { return len(s.names) }
