package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authsrv",
		Subsystem: "oauth",
		Name:      "token_requests_total",
		Help:      "Token endpoint requests by grant type and result.",
	}, []string{"grant_type", "result"})

	introspectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authsrv",
		Subsystem: "oauth",
		Name:      "introspection_requests_total",
		Help:      "Introspection requests by reported activity.",
	}, []string{"active"})

	revocationRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authsrv",
		Subsystem: "oauth",
		Name:      "revocation_requests_total",
		Help:      "Acknowledged revocation requests.",
	})
)

func observeToken(grantType, result string) {
	if grantType == "" {
		grantType = "unknown"
	}
	tokenRequests.WithLabelValues(grantType, result).Inc()
}

func observeIntrospection(active bool) {
	if active {
		introspectionRequests.WithLabelValues("true").Inc()
		return
	}
	introspectionRequests.WithLabelValues("false").Inc()
}

func observeRevocation() {
	revocationRequests.Inc()
}
