package attendance

import "github.com/prometheus/client_golang/prometheus"

var (
	scansStaged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manabitrack_scans_staged_total",
		Help: "Scans staged for confirmation, by mode.",
	}, []string{"mode"})

	scansConfirmed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manabitrack_scans_confirmed_total",
		Help: "Confirmed scan transitions, by transition kind.",
	}, []string{"kind"})

	scansRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manabitrack_scans_rejected_total",
		Help: "Rejected scans, by rejection kind.",
	}, []string{"kind"})

	sweepClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "manabitrack_sweep_closed_total",
		Help: "Sessions closed by the cutoff sweep.",
	})
)

func init() {
	prometheus.MustRegister(scansStaged, scansConfirmed, scansRejected, sweepClosed)
}
