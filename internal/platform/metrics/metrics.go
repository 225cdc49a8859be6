package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	RegistrationsCompleted prometheus.Counter
	RegistrationsRejected  prometheus.Counter
	EndpointLatency        *prometheus.HistogramVec

	// Consent metrics
	ConsentRecordsCreated *prometheus.CounterVec
	ConsentsRevoked       *prometheus.CounterVec
	ComplianceChecks      *prometheus.CounterVec
	DualConsentRequests   *prometheus.CounterVec
	PendingDualConsents   prometheus.Gauge
	RegistrationLatency   prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigorlog_registrations_started_total",
			Help: "Total number of minor registrations attempted",
		}),
		RegistrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigorlog_registrations_completed_total",
			Help: "Total number of minor registrations completed",
		}),
		RegistrationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigorlog_registrations_rejected_total",
			Help: "Total number of minor registrations rejected by validation",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigorlog_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ConsentRecordsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigorlog_consent_records_created_total",
			Help: "Total number of consent records created, labeled by type",
		}, []string{"type"}),
		ConsentsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigorlog_consents_revoked_total",
			Help: "Total number of consents revoked, labeled by type",
		}, []string{"type"}),
		ComplianceChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigorlog_compliance_checks_total",
			Help: "Total number of compliance checks, labeled by result",
		}, []string{"result"}),
		DualConsentRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigorlog_dual_consent_requests_total",
			Help: "Total number of dual-consent request transitions, labeled by status",
		}, []string{"status"}),
		PendingDualConsents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vigorlog_pending_dual_consent_requests",
			Help: "Current number of pending dual-consent requests",
		}),
		RegistrationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigorlog_registration_latency_seconds",
			Help:    "Latency of minor registration operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRegistrationsStarted() {
	m.RegistrationsStarted.Inc()
}

func (m *Metrics) IncrementRegistrationsCompleted() {
	m.RegistrationsCompleted.Inc()
}

func (m *Metrics) IncrementRegistrationsRejected() {
	m.RegistrationsRejected.Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// IncrementConsentRecordsCreated increments the records created counter with type label
func (m *Metrics) IncrementConsentRecordsCreated(consentType string) {
	m.ConsentRecordsCreated.WithLabelValues(consentType).Inc()
}

// IncrementConsentsRevoked increments the consents revoked counter with type label
func (m *Metrics) IncrementConsentsRevoked(consentType string) {
	m.ConsentsRevoked.WithLabelValues(consentType).Inc()
}

// IncrementComplianceChecks increments the compliance check counter with result label
func (m *Metrics) IncrementComplianceChecks(result string) {
	m.ComplianceChecks.WithLabelValues(result).Inc()
}

// IncrementDualConsentRequests increments the request transition counter with status label
func (m *Metrics) IncrementDualConsentRequests(status string) {
	m.DualConsentRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementPendingDualConsents() {
	m.PendingDualConsents.Inc()
}

func (m *Metrics) DecrementPendingDualConsents() {
	m.PendingDualConsents.Dec()
}

// ObserveRegistrationLatency records the duration of a registration
func (m *Metrics) ObserveRegistrationLatency(durationSeconds float64) {
	m.RegistrationLatency.Observe(durationSeconds)
}
