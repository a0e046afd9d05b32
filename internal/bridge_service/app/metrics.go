package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboundAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_bridge",
			Name:      "outbound_attempts_total",
			Help:      "Total outbound carrier requests by result.",
		},
		[]string{"provider_name", "result"}, // result: success, auth_error, carrier_error, transport_error, rejected
	)

	outboundRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sms_bridge",
			Name:      "outbound_request_duration_seconds",
			Help:      "Duration of outbound HTTP requests to carriers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name"},
	)

	webhookRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_bridge",
			Name:      "webhook_requests_total",
			Help:      "Total inbound webhook requests by response status.",
		},
		[]string{"provider_name", "status"},
	)

	webhookEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_bridge",
			Name:      "webhook_events_total",
			Help:      "Inbound webhook events by classified kind.",
		},
		[]string{"provider_name", "kind"}, // kind: message_received, duplicate, delivery_status, unknown
	)

	mediaFetchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_bridge",
			Name:      "media_fetch_total",
			Help:      "Inbound media downloads by result.",
		},
		[]string{"provider_name", "result"},
	)
)
