package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAccountMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAccountMetrics(reg)

	m.SearchSyncFailed("update_full_name")
	m.SearchSyncFailed("update_full_name")
	m.MailFailed("email-update")
	m.SoleAdminRejected("suspend")
	m.EventPublishFailed("idp.user.deleted")

	if got := testutil.ToFloat64(m.searchSyncFailures.WithLabelValues("update_full_name")); got != 2 {
		t.Fatalf("expected 2 sync failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.mailFailures.WithLabelValues("email-update")); got != 1 {
		t.Fatalf("expected 1 mail failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.soleAdminRejected.WithLabelValues("suspend")); got != 1 {
		t.Fatalf("expected 1 sole admin rejection, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 series, got %d", count)
	}
}

func TestNilAccountMetricsIsSafe(t *testing.T) {
	var m *AccountMetrics
	m.SearchSyncFailed("x")
	m.MailFailed("x")
	m.SoleAdminRejected("x")
	m.EventPublishFailed("x")
}
