// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// QueryKind is the closed set of data-query verbs.
type QueryKind int

const (
	QueryGet QueryKind = iota
	QueryLLen
	QueryHLen
	QuerySLen
	QueryZLen
	QueryHGet
	QueryHExists
	QuerySExists
	QueryLRange
	QueryZRange
)

type Reducer int

const (
	ReduceNone Reducer = iota
	ReduceAvg
	ReduceSum
	ReduceMin
	ReduceMax
)

var reducers = map[string]Reducer{
	"AVG": ReduceAvg,
	"SUM": ReduceSum,
	"MIN": ReduceMin,
	"MAX": ReduceMax,
}

// Query is one parsed data query.
type Query struct {
	Kind   QueryKind
	Key    string
	Arg    string // hash field or set member
	Reduce Reducer

	// From/To bound the range verbs: element indexes for LRANGE (To empty
	// means the last element), score bounds for ZRANGE (empty means
	// unbounded).
	From string
	To   string

	// Name is the metric the result is stored under.
	Name string

	Warn string
	Crit string
}

// ParseQuery parses the --query option form, comma-separated:
//
//	VERB,key[,arg][,warn][,crit]
//
// arg is required for HGET/HEXISTS/SEXISTS (the field or member) and for
// LRANGE/ZRANGE, where it is AVG|SUM|MIN|MAX optionally bounded as
// "AVG@start:end".
func ParseQuery(spec string) (*Query, error) {
	parts := strings.Split(spec, ",")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("query '%s': need at least a verb and a key", spec)
	}

	verb := strings.ToUpper(parts[0])
	q := &Query{Key: parts[1]}
	rest := parts[2:]

	switch verb {
	case "GET":
		q.Kind = QueryGet
	case "LLEN":
		q.Kind = QueryLLen
	case "HLEN":
		q.Kind = QueryHLen
	case "SLEN":
		q.Kind = QuerySLen
	case "ZLEN":
		q.Kind = QueryZLen
	case "HGET", "HEXISTS", "SEXISTS":
		switch verb {
		case "HGET":
			q.Kind = QueryHGet
		case "HEXISTS":
			q.Kind = QueryHExists
		default:
			q.Kind = QuerySExists
		}
		if len(rest) == 0 || rest[0] == "" {
			return nil, fmt.Errorf("query '%s': %s needs a field or member", spec, verb)
		}
		q.Arg = rest[0]
		rest = rest[1:]
	case "LRANGE", "ZRANGE":
		if verb == "LRANGE" {
			q.Kind = QueryLRange
		} else {
			q.Kind = QueryZRange
		}
		if len(rest) == 0 {
			return nil, fmt.Errorf("query '%s': %s needs a reducer", spec, verb)
		}
		if err := q.parseReducer(spec, rest[0]); err != nil {
			return nil, err
		}
		rest = rest[1:]
	default:
		return nil, fmt.Errorf("query '%s': unrecognized verb '%s'", spec, verb)
	}

	if len(rest) > 0 {
		q.Warn = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		q.Crit = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("query '%s': trailing elements after warn,crit", spec)
	}

	q.Name = queryMetricName(verb, q)
	return q, nil
}

func (q *Query) parseReducer(spec, s string) error {
	name, bounds, hasBounds := strings.Cut(s, "@")

	r, ok := reducers[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("query '%s': unrecognized reducer '%s'", spec, name)
	}
	q.Reduce = r
	q.Arg = strings.ToUpper(name)

	if !hasBounds {
		return nil
	}
	from, to, ok := strings.Cut(bounds, ":")
	if !ok {
		return fmt.Errorf("query '%s': bounds must be start:end", spec)
	}
	q.From, q.To = from, to

	if q.Kind == QueryLRange {
		if _, err := strconv.ParseInt(from, 10, 64); err != nil && from != "" {
			return fmt.Errorf("query '%s': list index '%s' is not an integer", spec, from)
		}
		if _, err := strconv.ParseInt(to, 10, 64); err != nil && to != "" {
			return fmt.Errorf("query '%s': list index '%s' is not an integer", spec, to)
		}
	}
	return nil
}

func queryMetricName(verb string, q *Query) string {
	name := strings.ToLower(verb) + "_" + q.Key
	if q.Arg != "" {
		name += "_" + strings.ToLower(q.Arg)
	}
	return name
}

// runQuery executes one query and stores its result. A failure leaves the
// metric absent; the caller logs it and the policy's absent action decides
// the severity.
func (p *Probe) runQuery(ctx context.Context, q *Query) error {
	switch q.Kind {
	case QueryGet:
		v, err := p.rdb.Get(ctx, q.Key).Result()
		if err != nil {
			return err
		}
		p.store.AddValue(q.Name, v, SourceQuery)
	case QueryLLen, QueryHLen, QuerySLen, QueryZLen:
		var cmd interface{ Result() (int64, error) }
		switch q.Kind {
		case QueryLLen:
			cmd = p.rdb.LLen(ctx, q.Key)
		case QueryHLen:
			cmd = p.rdb.HLen(ctx, q.Key)
		case QuerySLen:
			cmd = p.rdb.SCard(ctx, q.Key)
		default:
			cmd = p.rdb.ZCard(ctx, q.Key)
		}
		v, err := cmd.Result()
		if err != nil {
			return err
		}
		p.store.AddNum(q.Name, float64(v), SourceQuery)
	case QueryHGet:
		v, err := p.rdb.HGet(ctx, q.Key, q.Arg).Result()
		if err != nil {
			return err
		}
		p.store.AddValue(q.Name, v, SourceQuery)
	case QueryHExists, QuerySExists:
		var cmd interface{ Result() (bool, error) }
		if q.Kind == QueryHExists {
			cmd = p.rdb.HExists(ctx, q.Key, q.Arg)
		} else {
			cmd = p.rdb.SIsMember(ctx, q.Key, q.Arg)
		}
		v, err := cmd.Result()
		if err != nil {
			return err
		}
		var n float64
		if v {
			n = 1
		}
		p.store.AddNum(q.Name, n, SourceQuery)
	case QueryLRange:
		return p.runListRange(ctx, q)
	case QueryZRange:
		return p.runZSetRange(ctx, q)
	default:
		return fmt.Errorf("unrecognized query kind %d", q.Kind)
	}
	return nil
}

func (p *Probe) runListRange(ctx context.Context, q *Query) error {
	var start, stop int64 = 0, -1
	if q.From != "" {
		start, _ = strconv.ParseInt(q.From, 10, 64)
	}
	if q.To != "" {
		stop, _ = strconv.ParseInt(q.To, 10, 64)
	} else if q.From != "" {
		// end defaults to the last index, resolved via a cardinality call
		n, err := p.rdb.LLen(ctx, q.Key).Result()
		if err != nil {
			return err
		}
		stop = n - 1
	}

	elems, err := p.rdb.LRange(ctx, q.Key, start, stop).Result()
	if err != nil {
		return err
	}

	vals := make([]float64, 0, len(elems))
	for _, e := range elems {
		v, err := strconv.ParseFloat(e, 64)
		if err != nil {
			p.Debugf("query '%s': skipping non-numeric element '%s'", q.Name, e)
			continue
		}
		vals = append(vals, v)
	}

	return p.storeReduced(q, vals)
}

func (p *Probe) runZSetRange(ctx context.Context, q *Query) error {
	lo, hi := q.From, q.To
	if lo == "" {
		lo = "-inf"
	}
	if hi == "" {
		hi = "+inf"
	}

	members, err := p.rdb.ZRangeByScoreWithScores(ctx, q.Key, &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return err
	}

	vals := make([]float64, 0, len(members))
	for _, m := range members {
		vals = append(vals, m.Score)
	}

	return p.storeReduced(q, vals)
}

func (p *Probe) storeReduced(q *Query, vals []float64) error {
	if len(vals) == 0 {
		return fmt.Errorf("query '%s': no numeric elements in range", q.Name)
	}

	var v float64
	switch q.Reduce {
	case ReduceAvg:
		for _, x := range vals {
			v += x
		}
		v /= float64(len(vals))
	case ReduceSum:
		for _, x := range vals {
			v += x
		}
	case ReduceMin:
		v = vals[0]
		for _, x := range vals[1:] {
			if x < v {
				v = x
			}
		}
	case ReduceMax:
		v = vals[0]
		for _, x := range vals[1:] {
			if x > v {
				v = x
			}
		}
	default:
		return fmt.Errorf("query '%s': unrecognized reducer %d", q.Name, q.Reduce)
	}

	p.store.AddNum(q.Name, v, SourceQuery)
	return nil
}
