package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EngagementTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniclub_engagement_total",
		Help: "Engagement writes by action, content type and result.",
	}, []string{"action", "content_type", "result"})

	OutboxRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniclub_outbox_relayed_total",
		Help: "Outbox events relayed, by result.",
	}, []string{"result"})

	CounterDriftFixed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniclub_counter_drift_fixed_total",
		Help: "Denormalized counters corrected by the reconciler.",
	}, []string{"target", "counter"})
)
