package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccountMetrics counts side-effect failures of account operations.
type AccountMetrics struct {
	searchSyncFailures *prometheus.CounterVec
	mailFailures       *prometheus.CounterVec
	soleAdminRejected  *prometheus.CounterVec
	eventFailures      *prometheus.CounterVec
}

// NewAccountMetrics registers the account collectors with reg.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewAccountMetrics(reg prometheus.Registerer) *AccountMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &AccountMetrics{
		searchSyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "search_sync_failures_total",
			Help:      "Search index writes that failed after the repository write succeeded.",
		}, []string{"operation"}),
		mailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "mail_failures_total",
			Help:      "Transactional mails that could not be dispatched.",
		}, []string{"template"}),
		soleAdminRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "sole_admin_rejections_total",
			Help:      "Suspend or demote requests rejected to keep an active admin.",
		}, []string{"operation"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "event_publish_failures_total",
			Help:      "Account events that could not be handed to the broker.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.searchSyncFailures, m.mailFailures, m.soleAdminRejected, m.eventFailures)
	return m
}

func (m *AccountMetrics) SearchSyncFailed(operation string) {
	if m == nil {
		return
	}
	m.searchSyncFailures.WithLabelValues(operation).Inc()
}

func (m *AccountMetrics) MailFailed(template string) {
	if m == nil {
		return
	}
	m.mailFailures.WithLabelValues(template).Inc()
}

func (m *AccountMetrics) SoleAdminRejected(operation string) {
	if m == nil {
		return
	}
	m.soleAdminRejected.WithLabelValues(operation).Inc()
}

func (m *AccountMetrics) EventPublishFailed(event string) {
	if m == nil {
		return
	}
	m.eventFailures.WithLabelValues(event).Inc()
}
