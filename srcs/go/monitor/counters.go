package monitor

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

type accumulator struct {
	name  string
	value int64
}

func newAccumulator(name string) *accumulator {
	return &accumulator{
		name: name,
	}
}

func (a *accumulator) Add(n int64) int64 {
	return atomic.AddInt64(&a.value, n)
}

func (a *accumulator) Get() int64 {
	return atomic.LoadInt64(&a.value)
}

func (a *accumulator) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "%s %d\n", a.name, a.Get())
}

type rate struct {
	sync.Mutex

	name   string
	prev   int64
	target *accumulator
	value  float64
}

func newRate(a *accumulator, name string) *rate {
	return &rate{
		name:   name,
		target: a,
	}
}

const (
	totalUnitSuffix = `bytes`
	rateUnitSuffix  = `bytes_per_sec`
	rateTimeUnit    = float64(time.Second)
)

func (r *rate) getValue() float64 {
	r.Lock()
	defer r.Unlock()
	return r.value
}

func (r *rate) update(p time.Duration) {
	now := r.target.Get()
	r.Lock()
	defer r.Unlock()
	r.value = float64(now-r.prev) / (float64(p) / rateTimeUnit)
	r.prev = now
}

func (r *rate) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "%s %f\n", r.name, r.getValue())
}

type rateAccumulator struct {
	a *accumulator
	r *rate
}

func newRateAccumulator(prefix string, labels string) *rateAccumulator {
	a := newAccumulator(prefix + "_total_" + totalUnitSuffix + labels)
	r := newRate(a, prefix+"_rate_"+rateUnitSuffix+labels)
	return &rateAccumulator{
		a: a,
		r: r,
	}
}

func (c *rateAccumulator) WriteTo(w io.Writer) {
	c.a.WriteTo(w)
	c.r.WriteTo(w)
}

// rateAccumulatorGroup keys accumulators by their label string.
type rateAccumulatorGroup struct {
	sync.Mutex

	prefix           string
	rateAccumulators map[string]*rateAccumulator
}

func newRateAccumulatorGroup(prefix string) *rateAccumulatorGroup {
	return &rateAccumulatorGroup{
		prefix:           prefix,
		rateAccumulators: make(map[string]*rateAccumulator),
	}
}

func (g *rateAccumulatorGroup) getOrCreate(labels string) *rateAccumulator {
	g.Lock()
	defer g.Unlock()
	ra, ok := g.rateAccumulators[labels]
	if !ok {
		ra = newRateAccumulator(g.prefix, labels)
		g.rateAccumulators[labels] = ra
	}
	return ra
}

func (g *rateAccumulatorGroup) update(p time.Duration) {
	g.Lock()
	defer g.Unlock()
	for _, ra := range g.rateAccumulators {
		ra.r.update(p)
	}
}

func (g *rateAccumulatorGroup) sortedLabels() []string {
	var labels []string
	for k := range g.rateAccumulators {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

func (g *rateAccumulatorGroup) WriteTo(w io.Writer) {
	g.Lock()
	defer g.Unlock()
	for _, k := range g.sortedLabels() {
		g.rateAccumulators[k].WriteTo(w)
	}
}

func (g *rateAccumulatorGroup) total() int64 {
	g.Lock()
	defer g.Unlock()
	var n int64
	for _, ra := range g.rateAccumulators {
		n += ra.a.Get()
	}
	return n
}

func (g *rateAccumulatorGroup) getRates(labels []string) []float64 {
	g.Lock()
	defer g.Unlock()
	rates := make([]float64, len(labels))
	for i, k := range labels {
		if ra, ok := g.rateAccumulators[k]; ok {
			rates[i] = ra.r.getValue()
		}
	}
	return rates
}

// collectiveCounters counts launches and payload bytes per collective kind.
type collectiveCounters struct {
	sync.Mutex

	calls map[string]*accumulator
	bytes map[string]*accumulator
}

func newCollectiveCounters() *collectiveCounters {
	return &collectiveCounters{
		calls: make(map[string]*accumulator),
		bytes: make(map[string]*accumulator),
	}
}

func (c *collectiveCounters) add(kind string, n int64) {
	c.Lock()
	calls, ok := c.calls[kind]
	if !ok {
		labels := fmt.Sprintf(`{kind="%s"}`, kind)
		calls = newAccumulator("collective_calls_total" + labels)
		c.calls[kind] = calls
		c.bytes[kind] = newAccumulator("collective_total_" + totalUnitSuffix + labels)
	}
	bytes := c.bytes[kind]
	c.Unlock()
	calls.Add(1)
	bytes.Add(n)
}

func (c *collectiveCounters) kinds() []string {
	var ks []string
	for k := range c.calls {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func (c *collectiveCounters) WriteTo(w io.Writer) {
	c.Lock()
	defer c.Unlock()
	for _, k := range c.kinds() {
		c.calls[k].WriteTo(w)
		c.bytes[k].WriteTo(w)
	}
}

func (c *collectiveCounters) writeSummary(w io.Writer) {
	c.Lock()
	defer c.Unlock()
	for _, k := range c.kinds() {
		fmt.Fprintf(w, "# %s: %s calls, %s\n", k, humanize.Comma(c.calls[k].Get()), humanize.IBytes(uint64(c.bytes[k].Get())))
	}
}
