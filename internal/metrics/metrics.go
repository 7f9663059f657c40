// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "farlance"

// Label values for Notifications
const (
	KindJobMatch     = "job_match"
	KindNewApplicant = "new_applicant"
)

// Metrics holds every collector the service updates
type Metrics struct {
	JobsPosted          prometheus.Counter
	JobSkillTagFailures prometheus.Counter
	MatchFailures       prometheus.Counter
	Notifications       *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RateLimited         prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		JobsPosted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_posted_total",
			Help:      "Number of jobs created",
		}),
		JobSkillTagFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_skill_tag_failures_total",
			Help:      "Number of jobs whose required skills could not be stored",
		}),
		MatchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_match_failures_total",
			Help:      "Number of postings whose matching query failed",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Push notification attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// NewNop returns metrics registered with a private registry, for tests and tools
// that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
