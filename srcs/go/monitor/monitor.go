package monitor

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

type netMonitor interface {
	Egress(n int64, a plan.NetAddr)
	Ingress(n int64, a plan.NetAddr)

	GetEgressRates(addrs []plan.NetAddr) []float64
}

type Monitor interface {
	http.Handler
	netMonitor

	// Collective records one kernel launch of the given kind moving n bytes.
	Collective(kind string, n int64)

	WriteTo(w io.Writer)
}

var defaultMonitor Monitor

func init() {
	defaultMonitor = New(config.EnableMonitoring, config.MonitoringPeriod)
}

func GetMonitor() Monitor {
	return defaultMonitor
}

// New returns a no-op monitor unless enabled. Rates are refreshed every p when p > 0.
func New(enabled bool, p time.Duration) Monitor {
	if !enabled {
		return &noopMonitor{}
	}
	m := &netMetrics{
		egressCounters:  newRateAccumulatorGroup("egress"),
		ingressCounters: newRateAccumulatorGroup("ingress"),
		collectives:     newCollectiveCounters(),
	}
	if p > 0 {
		go m.start(p)
	}
	return m
}

type noopMonitor struct{}

func (m *noopMonitor) Egress(n int64, a plan.NetAddr) {}

func (m *noopMonitor) Ingress(n int64, a plan.NetAddr) {}

func (m *noopMonitor) Collective(kind string, n int64) {}

func (m *noopMonitor) GetEgressRates(addrs []plan.NetAddr) []float64 {
	log.Warnf("monitoring is not enabled")
	return make([]float64, len(addrs))
}

func (m *noopMonitor) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	http.Error(w, "monitoring is not enabled", http.StatusNotFound)
}

func (m *noopMonitor) WriteTo(w io.Writer) {}

type netMetrics struct {
	egressCounters  *rateAccumulatorGroup
	ingressCounters *rateAccumulatorGroup
	collectives     *collectiveCounters
}

func peerLabels(a plan.NetAddr) string {
	return fmt.Sprintf(`{peer="%s"}`, a)
}

func (m *netMetrics) start(p time.Duration) {
	for range time.Tick(p) {
		m.egressCounters.update(p)
		m.ingressCounters.update(p)
	}
}

func (m *netMetrics) Egress(n int64, a plan.NetAddr) {
	m.egressCounters.getOrCreate(peerLabels(a)).a.Add(n)
}

func (m *netMetrics) Ingress(n int64, a plan.NetAddr) {
	m.ingressCounters.getOrCreate(peerLabels(a)).a.Add(n)
}

func (m *netMetrics) Collective(kind string, n int64) {
	m.collectives.add(kind, n)
}

func (m *netMetrics) GetEgressRates(addrs []plan.NetAddr) []float64 {
	labels := make([]string, len(addrs))
	for i, a := range addrs {
		labels[i] = peerLabels(a)
	}
	return m.egressCounters.getRates(labels)
}

func (m *netMetrics) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "# egress %s, ingress %s\n",
		humanize.IBytes(uint64(m.egressCounters.total())),
		humanize.IBytes(uint64(m.ingressCounters.total())))
	m.collectives.writeSummary(w)
	m.egressCounters.WriteTo(w)
	m.ingressCounters.WriteTo(w)
	m.collectives.WriteTo(w)
}

func (m *netMetrics) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	m.WriteTo(w)
}
