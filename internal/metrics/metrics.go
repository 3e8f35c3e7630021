// Package metrics holds the Prometheus counters shared by the contact API and
// the mail relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// Submissions counts finished submissions by outcome ("ok" or an error kind).
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Contact submissions by outcome",
	}, []string{"outcome"})

	// Verifications counts challenge checks: "ok", "rejected" or "error".
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_challenge_verifications_total",
		Help: "Challenge verifications by result",
	}, []string{"result"})

	// DeliveryAttempts counts every call to the delivery collaborator, so a
	// retried submission counts twice.
	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_delivery_attempts_total",
		Help: "Delivery attempts by dispatcher and result",
	}, []string{"dispatcher", "result"})

	// RelaySends counts relay send requests by result.
	RelaySends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_relay_sends_total",
		Help: "Mail relay sends by result",
	}, []string{"result"})
)
