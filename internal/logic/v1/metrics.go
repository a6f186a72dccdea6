package v1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Credential verification attempts by result.",
	}, []string{"result"})

	sessionValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_validations_total",
		Help: "Bearer token validations by result.",
	}, []string{"result"})

	sessionRenewals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_renewals_total",
		Help: "Sessions whose expiry was extended during validation.",
	})

	sessionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_issued_total",
		Help: "Sessions issued by kind.",
	}, []string{"kind"})

	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_swept_total",
		Help: "Expired sessions removed by the sweeper.",
	})
)

func sessionKind(longLived bool) string {
	if longLived {
		return "long"
	}
	return "short"
}
