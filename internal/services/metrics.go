package services

import "github.com/prometheus/client_golang/prometheus"

var (
	appointmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "allodocteur",
			Name:      "appointments_created_total",
			Help:      "Appointments created, by booking flow.",
		},
		[]string{"flow"}, // unpaid|paid
	)
	appointmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "allodocteur",
			Name:      "appointment_transitions_total",
			Help:      "Confirmation state transitions.",
		},
		[]string{"to"},
	)
	paymentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "allodocteur",
			Name:      "payment_events_total",
			Help:      "Verified payment webhook events, by outcome.",
		},
		[]string{"outcome"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "allodocteur",
			Name:      "notifications_total",
			Help:      "Notification attempts, by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(appointmentsCreated, appointmentTransitions, paymentEvents, notifications)
}
