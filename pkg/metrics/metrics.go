package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Reservation metrics
	ReservationsTotal  *prometheus.CounterVec
	ReservationLatency prometheus.Histogram
	SlotReleases       prometheus.Counter

	// Matching metrics
	HeartbeatPolls  *prometheus.CounterVec
	MatchesTotal    prometheus.Counter
	AcceptConflicts prometheus.Counter
	RejectionsTotal prometheus.Counter
	PendingMeetings prometheus.Gauge
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace, subsystem)
}

// NewMetricsWith registers against an explicit registerer; tests use a
// fresh registry per fixture.
func NewMetricsWith(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReservationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "slot_reservations_total",
			Help:      "Slot reservation attempts by outcome",
		}, []string{"outcome"}),
		ReservationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "booking_create_duration_seconds",
			Help:      "Time spent creating a booking, including the slot reserve",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		SlotReleases: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "slot_releases_total",
			Help:      "Compensating slot releases after failed booking writes",
		}),
		HeartbeatPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "heartbeat_polls_total",
			Help:      "Doctor heartbeat polls by outcome",
		}, []string{"outcome"}),
		MatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "meeting_matches_total",
			Help:      "Meetings successfully claimed by a doctor",
		}),
		AcceptConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "meeting_accept_conflicts_total",
			Help:      "Accept attempts that lost the claim race",
		}),
		RejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "meeting_rejections_total",
			Help:      "Meetings declined by doctors",
		}),
		PendingMeetings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_meetings",
			Help:      "Meetings currently waiting for a doctor",
		}),
	}
}

const (
	OutcomeReserved  = "reserved"
	OutcomeSlotFull  = "slot_full"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeOffered   = "offered"
	OutcomeNoMeeting = "no_meeting"
	OutcomeRejoined  = "rejoined"
)
