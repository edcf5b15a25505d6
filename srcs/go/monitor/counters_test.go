package monitor

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

func Test_rateAccumulator(t *testing.T) {
	var b bytes.Buffer
	g := newRateAccumulatorGroup("egress")
	ra := g.getOrCreate(`{peer="a"}`)
	ra.a.Add(3)
	g.update(time.Second)
	g.WriteTo(&b)
	const want = `egress_total_bytes{peer="a"} 3
egress_rate_bytes_per_sec{peer="a"} 3.000000
`
	assert.Equal(t, want, b.String())
	assert.Equal(t, []float64{3, 0}, g.getRates([]string{`{peer="a"}`, `{peer="b"}`}))
}

func Test_monitor(t *testing.T) {
	m := New(true, 0)
	a := plan.NetAddr{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10000}
	m.Egress(2048, a)
	m.Ingress(1024, a)
	m.Collective("c_broadcast", 40)
	m.Collective("c_broadcast", 40)

	var b bytes.Buffer
	m.WriteTo(&b)
	out := b.String()
	assert.True(t, strings.HasPrefix(out, "# egress 2.0 KiB, ingress 1.0 KiB\n"), out)
	assert.Contains(t, out, "# c_broadcast: 2 calls, 80 B\n")
	assert.Contains(t, out, `collective_calls_total{kind="c_broadcast"} 2`)
	assert.Contains(t, out, `egress_total_bytes{peer="127.0.0.1:10000"} 2048`)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, out, rec.Body.String())
}

func Test_noop_monitor(t *testing.T) {
	m := New(false, 0)
	m.Collective("c_broadcast", 1)
	var b bytes.Buffer
	m.WriteTo(&b)
	assert.Empty(t, b.String())
	assert.Equal(t, []float64{0}, m.GetEgressRates([]plan.NetAddr{{}}))
}
