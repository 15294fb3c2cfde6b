// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so mounting
// promhttp.Handler() on /metrics is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_votes_total",
			Help: "Votes processed, by vote type and effect (added, removed, switched).",
		}, []string{"vote_type", "effect"})

	CopiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_copies_total",
			Help: "Prompt copy events, by normalised source and client country.",
		}, []string{"source", "country"})

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_outcomes_total",
			Help: "Self-reported outcomes, by outcome type.",
		}, []string{"outcome_type"})

	SubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leaderboard_submissions_total",
			Help: "Prompts submitted for moderation.",
		})

	HubSpotInstallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubspot_installs_total",
			Help: "OAuth install callbacks, by result code.",
		}, []string{"result"})

	HubSpotRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubspot_token_refresh_total",
			Help: "Access-token refresh attempts, by result.",
		}, []string{"result"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern, method, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"})
)

func init() {
	prometheus.MustRegister(
		VotesTotal,
		CopiesTotal,
		OutcomesTotal,
		SubmissionsTotal,
		HubSpotInstallsTotal,
		HubSpotRefreshTotal,
		HTTPRequestDuration,
	)
}
