package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration provides observability for the signup pipeline.
type Registration struct {
	Outcomes      *prometheus.CounterVec
	Fallbacks     prometheus.Counter
	Compensations *prometheus.CounterVec
	Duration      prometheus.Histogram
}

// New creates the registration metrics on reg.
func New(reg prometheus.Registerer) *Registration {
	f := promauto.With(reg)
	return &Registration{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_registrations_total",
			Help: "Registration attempts by outcome (ok, validation, identity, linking)",
		}, []string{"outcome"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "signup_institution_fallbacks_total",
			Help: "Registrations linked to the fallback institution because the name did not match",
		}),
		Compensations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_compensations_total",
			Help: "Compensating actions taken after a profile could not be linked",
		}, []string{"action", "result"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signup_registration_duration_seconds",
			Help:    "Duration of the full registration pipeline",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveRegistration records the outcome and duration of one attempt.
// Call with time.Now() taken at the start of the attempt.
func (m *Registration) ObserveRegistration(outcome string, start time.Time) {
	m.Outcomes.WithLabelValues(outcome).Inc()
	m.Duration.Observe(time.Since(start).Seconds())
}

// IncrementFallback records a silent fallback institution substitution.
func (m *Registration) IncrementFallback() {
	m.Fallbacks.Inc()
}

// IncrementCompensation records a compensating action and whether it worked.
func (m *Registration) IncrementCompensation(action string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.Compensations.WithLabelValues(action, result).Inc()
}
