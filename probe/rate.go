// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"time"

	"github.com/willixix/naglio-plugins/pkg/perfdata"
)

// computeRates derives change-per-second metrics from the previous run's
// sample. A request with no usable previous value or a non-positive elapsed
// time yields nothing; the metric stays absent and its policy's absent
// action decides the outcome.
func (p *Probe) computeRates(now time.Time, prev *perfdata.Set) {
	for _, req := range p.rates {
		cur, ok := p.store.Get(req.Base)
		if !ok || !cur.Numeric {
			p.Debugf("rate '%s': base metric '%s' not collected", req.Name, req.Base)
			continue
		}
		if prev == nil || !prev.HasTime() {
			p.Debugf("rate '%s': no previous sample", req.Name)
			continue
		}
		prevValue, ok := prev.Value(req.Base)
		if !ok {
			p.Debugf("rate '%s': no previous value for '%s'", req.Name, req.Base)
			continue
		}

		elapsed := now.Sub(prev.Time).Seconds()
		if elapsed <= 0 {
			p.Debugf("rate '%s': non-positive elapsed time %v", req.Name, elapsed)
			continue
		}

		// counter reset assumption: a monotonic counter going backwards
		// means the server restarted
		if req.Counter && cur.Num < prevValue {
			prevValue = 0
		}

		p.store.AddNum(req.Name, (cur.Num-prevValue)/elapsed, SourceDerivedRate)
	}
}
