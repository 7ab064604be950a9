package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chargewatch_active_sessions",
		Help: "Number of sessions currently being monitored",
	})

	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chargewatch_polls_total",
		Help: "Monitoring polls by outcome",
	}, []string{"outcome"})

	PollLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chargewatch_poll_latency_seconds",
		Help:    "Latency of monitoring snapshot fetches",
		Buckets: prometheus.DefBuckets,
	})

	PhaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chargewatch_phase_transitions_total",
		Help: "Session phase transitions detected by polling",
	}, []string{"to"})

	PaymentResyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargewatch_payment_resyncs_total",
		Help: "Payment amounts corrected beyond tolerance at initiation",
	})

	AuthExpiriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargewatch_auth_expiries_total",
		Help: "Credential clears after repeated auth failures",
	})

	EnergyDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargewatch_energy_delivered_kwh_total",
		Help: "Total energy recorded across completed sessions in kWh",
	})
)
