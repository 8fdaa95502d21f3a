package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments a bridge. A nil *Metrics records nothing.
type Metrics struct {
	EventsIngested *prometheus.CounterVec
	ListenerFaults *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	Invocations    *prometheus.CounterVec
}

// NewMetrics creates the bridge collectors and registers them on reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cmdbridge",
				Subsystem: "ingest",
				Name:      "events_total",
				Help:      "Events received from the backend",
			},
			[]string{"channel"},
		),
		ListenerFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cmdbridge",
				Subsystem: "registry",
				Name:      "listener_faults_total",
				Help:      "Listener handlers that failed or panicked",
			},
			[]string{"channel"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cmdbridge",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cmdbridge",
				Subsystem: "dispatch",
				Name:      "invocations_total",
				Help:      "Backend invocations by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.EventsIngested, m.ListenerFaults, m.CacheLookups, m.Invocations)
	}
	return m
}

func (m *Metrics) eventIngested(channel string) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(channel).Inc()
}

func (m *Metrics) listenerFault(channel string) {
	if m == nil {
		return
	}
	m.ListenerFaults.WithLabelValues(channel).Inc()
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) invocation(mode string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Invocations.WithLabelValues(mode, outcome).Inc()
}
