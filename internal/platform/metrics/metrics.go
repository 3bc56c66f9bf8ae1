package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registration engine.
type Metrics struct {
	SessionsCreated        prometheus.Counter
	SessionsExpired        prometheus.Counter
	StepsCompleted         *prometheus.CounterVec
	StepValidationFailures *prometheus.CounterVec
	VerificationAttempts   *prometheus.CounterVec
	VerificationConfirmed  *prometheus.CounterVec
	CooldownRejections     *prometheus.CounterVec
	RegistrationsSubmitted prometheus.Counter
	ProviderFailures       *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry-free default.
// Use NewWith in tests to avoid duplicate registration panics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "medboard_registration_sessions_created_total",
			Help: "Total registration sessions created",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "medboard_registration_sessions_expired_total",
			Help: "Total registration sessions found expired on read",
		}),
		StepsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_registration_steps_completed_total",
			Help: "Total wizard steps completed",
		}, []string{"step"}),
		StepValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_registration_step_validation_failures_total",
			Help: "Total step validation failures",
		}, []string{"step"}),
		VerificationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_verification_attempts_total",
			Help: "Total verification send/confirm attempts",
		}, []string{"channel"}),
		VerificationConfirmed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_verification_confirmed_total",
			Help: "Total successful verification confirmations",
		}, []string{"channel"}),
		CooldownRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_verification_cooldown_rejections_total",
			Help: "Total sends rejected because a cooldown was active",
		}, []string{"channel"}),
		RegistrationsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "medboard_registrations_submitted_total",
			Help: "Total completed registrations submitted to the profile store",
		}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medboard_provider_failures_total",
			Help: "Total external provider failures",
		}, []string{"provider"}),
	}
}
