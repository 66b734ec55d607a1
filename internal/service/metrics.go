package service

import "github.com/prometheus/client_golang/prometheus"

// Orphan reasons reported on filevault_orphaned_blobs_total.
const (
	OrphanIndexFailed  = "index_failed"
	OrphanDeleteFailed = "blob_delete_failed"
)

// Metrics holds the consistency counters of the file gateway.
type Metrics struct {
	orphanedBlobs    *prometheus.CounterVec
	reconcileRemoved prometheus.Counter
}

// NewMetrics creates the gateway counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		orphanedBlobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_orphaned_blobs_total",
				Help: "Blobs left without a metadata record after a partial failure.",
			},
			[]string{"reason"},
		),
		reconcileRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_reconcile_removed_total",
				Help: "Orphaned blobs removed by the reconciliation sweep.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.orphanedBlobs, m.reconcileRemoved} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) orphaned(reason string) {
	if m == nil {
		return
	}
	m.orphanedBlobs.WithLabelValues(reason).Inc()
}

func (m *Metrics) reconciled() {
	if m == nil {
		return
	}
	m.reconcileRemoved.Inc()
}
