package kernel

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the facade's prometheus surface (SPEC_FULL.md §2): call
// counts split by outcome, byte throughput, and resolver-chain cache
// misses, grounded on the counter/histogram shape
// lk2023060901-danmu-garden-go/pkg/metrics wires for its own RPC facade.
type Metrics struct {
	encodeTotal  *prometheus.CounterVec
	decodeTotal  *prometheus.CounterVec
	encodeBytes  prometheus.Histogram
	decodeBytes  prometheus.Histogram
	resolverMiss *prometheus.CounterVec
}

// NewMetrics registers the facade's collectors against reg and returns the
// handle used to record observations. Each Kernel gets its own private
// prometheus.Registry by default (see Config) rather than the global
// DefaultRegisterer, so constructing more than one Kernel in a process (or
// in a test) never panics on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		encodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphwire_encode_total",
			Help: "Total top-level Encode calls by outcome.",
		}, []string{"result"}),
		decodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphwire_decode_total",
			Help: "Total top-level Decode calls by outcome.",
		}, []string{"result"}),
		encodeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphwire_encode_bytes",
			Help:    "Bytes written per successful Encode call.",
			Buckets: prometheus.ExponentialBuckets(32, 4, 10),
		}),
		decodeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphwire_decode_bytes",
			Help:    "Bytes consumed per successful Decode call.",
			Buckets: prometheus.ExponentialBuckets(32, 4, 10),
		}),
		resolverMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphwire_resolver_miss_total",
			Help: "Resolver chain lookups that produced no formatter, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.encodeTotal, m.decodeTotal, m.encodeBytes, m.decodeBytes, m.resolverMiss)
	return m
}

func (m *Metrics) observeEncode(ok bool, n int64) {
	if m == nil {
		return
	}
	if ok {
		m.encodeTotal.WithLabelValues("ok").Inc()
		m.encodeBytes.Observe(float64(n))
	} else {
		m.encodeTotal.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) observeDecode(ok bool, n int64) {
	if m == nil {
		return
	}
	if ok {
		m.decodeTotal.WithLabelValues("ok").Inc()
		m.decodeBytes.Observe(float64(n))
	} else {
		m.decodeTotal.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) observeResolverMiss(typeName string) {
	if m == nil {
		return
	}
	m.resolverMiss.WithLabelValues(typeName).Inc()
}
