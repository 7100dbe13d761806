package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizbook",
			Name:      "sync_flushes_total",
			Help:      "Total number of snapshot flushes by result",
		},
		[]string{"result"},
	)
	syncConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bizbook",
			Name:      "sync_conflicts_total",
			Help:      "Total number of remote hash conflicts hit during flush",
		},
	)
	pendingMutations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bizbook",
			Name:      "sync_pending_mutations",
			Help:      "Local mutations not yet confirmed written to the remote store",
		},
	)
)
