// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthOperations counts session lifecycle calls by operation and outcome.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Authentication operations by operation and outcome.",
	}, []string{"op", "outcome"})

	// RateLimitRejections counts requests refused by the auth rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter, by path.",
	}, []string{"path"})

	// DailyRecomputes counts daily record recomputations by trigger.
	DailyRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_record_recomputes_total",
		Help: "Daily compliance recomputations by trigger.",
	}, []string{"trigger"})

	// ResetMails counts password reset deliveries by transport and result.
	ResetMails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "password_reset_mails_total",
		Help: "Password reset deliveries by transport and result.",
	}, []string{"transport", "result"})
)
