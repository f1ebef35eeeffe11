package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache-tier behavior. Pass nil to the engine to disable.
type Metrics struct {
	HotHits   prometheus.Counter
	HotMisses prometheus.Counter
	ColdReads prometheus.Counter
	Uploads   prometheus.Counter
	DedupHits prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HotHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picvault_hot_cache_hits_total",
			Help: "Reads served from the hot tier.",
		}),
		HotMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picvault_hot_cache_misses_total",
			Help: "Reads that fell through to the cold tier.",
		}),
		ColdReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picvault_cold_reads_total",
			Help: "Objects fetched from the cold tier.",
		}),
		Uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picvault_uploads_total",
			Help: "Successful uploads, including deduplicated ones.",
		}),
		DedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picvault_dedup_hits_total",
			Help: "Uploads resolved to an already-stored payload.",
		}),
	}

	for _, c := range []prometheus.Counter{m.HotHits, m.HotMisses, m.ColdReads, m.Uploads, m.DedupHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
