// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

var reKeyspaceDB = regexp.MustCompile(`^db\d+$`)
var reKeyspaceValue = regexp.MustCompile(`^keys=(\d+),expires=(\d+)`)

// collectInfo loads every INFO property into the metric store and derives
// the probe's own metrics (databases, total_keys, total_expires, hitrate,
// memory_utilization) from them.
//
// https://redis.io/commands/info
// Lines can contain a section name (starting with a # character) or a
// property in the form of field:value terminated by \r\n.
func (p *Probe) collectInfo(info string) {
	var databases, totalKeys, totalExpires float64

	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		field, value, ok := parseProperty(line)
		if !ok {
			continue
		}

		if reKeyspaceDB.MatchString(field) {
			match := reKeyspaceValue.FindStringSubmatch(value)
			if match == nil {
				continue
			}
			keys, _ := strconv.ParseFloat(match[1], 64)
			expires, _ := strconv.ParseFloat(match[2], 64)

			p.store.AddNum(field+"_keys", keys, SourceDirect)
			p.store.AddNum(field+"_expires_keys", expires, SourceDirect)
			databases++
			totalKeys += keys
			totalExpires += expires
			continue
		}

		p.store.AddValue(field, value, SourceDirect)

		if field == "redis_version" {
			if ver, err := semver.ParseTolerant(value); err == nil {
				p.version = &ver
			}
		}
	}

	p.store.AddNum("databases", databases, SourceDirect)
	p.store.AddNum("total_keys", totalKeys, SourceDirect)
	p.store.AddNum("total_expires", totalExpires, SourceDirect)

	p.collectHitRate()

	if p.TotalMemory > 0 {
		if used, ok := p.store.Get("used_memory"); ok && used.Numeric {
			p.store.AddNum("memory_utilization", used.Num*100/float64(p.TotalMemory), SourceDirect)
		}
	}
}

// collectHitRate stores the keyspace lookup hit rate as a percentage. With
// a previous sample whose hits the current counters exceed, the rate is
// computed over the interval instead of the server's lifetime; when the
// counters went backwards (restart, stat reset) the lifetime value silently
// stands.
func (p *Probe) collectHitRate() {
	hits, okH := p.store.Get("keyspace_hits")
	misses, okM := p.store.Get("keyspace_misses")
	if !okH || !okM || !hits.Numeric || !misses.Numeric {
		return
	}

	var rate float64
	if total := hits.Num + misses.Num; total > 0 {
		rate = hits.Num * 100 / total
	}

	if p.prev != nil {
		prevHits, okPH := p.prev.Value("keyspace_hits")
		prevMisses, okPM := p.prev.Value("keyspace_misses")
		if okPH && okPM && hits.Num > prevHits {
			dh := hits.Num - prevHits
			dm := misses.Num - prevMisses
			if dh+dm > 0 {
				rate = dh * 100 / (dh + dm)
			}
		}
	}

	p.store.AddNum("hitrate", rate, SourceDirect)
}

func parseProperty(prop string) (field, value string, ok bool) {
	i := strings.IndexByte(prop, ':')
	if i == -1 {
		return "", "", false
	}
	field, value = prop[:i], prop[i+1:]
	return field, value, field != "" && value != ""
}
