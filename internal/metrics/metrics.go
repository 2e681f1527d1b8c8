package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labportal_login_success_total",
		Help: "Total number of successful logins",
	})
	loginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labportal_login_failure_total",
		Help: "Total number of failed login attempts",
	})
	externalAuthErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labportal_external_auth_errors_total",
		Help: "Total number of host authentication (PAM) errors or timeouts",
	})
	auditEntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labportal_audit_entries_total",
		Help: "Total number of audit entries recorded",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(loginSuccessTotal, loginFailureTotal, externalAuthErrorsTotal, auditEntriesTotal)
}

// IncLoginSuccess increments the successful logins counter.
func IncLoginSuccess() { loginSuccessTotal.Inc() }

// IncLoginFailure increments the failed logins counter.
func IncLoginFailure() { loginFailureTotal.Inc() }

// IncExternalAuthError increments the host-auth error counter.
func IncExternalAuthError() { externalAuthErrorsTotal.Inc() }

// IncAuditEntry increments the recorded audit entries counter.
func IncAuditEntry() { auditEntriesTotal.Inc() }
