package prometheus

import "github.com/prometheus/client_golang/prometheus"

const (
	httpDurationBucketStart  = 0.005
	httpDurationBucketFactor = 2.0
	httpDurationBucketCount  = 14
)

const (
	leadDurationBucketStart  = 0.01
	leadDurationBucketFactor = 2.0
	leadDurationBucketCount  = 12
)

const (
	kafkaLatencyBucketStart  = 1.0
	kafkaLatencyBucketFactor = 2.5
	kafkaLatencyBucketCount  = 15
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Time taken to serve an HTTP request",
		Buckets: prometheus.ExponentialBuckets(
			httpDurationBucketStart,
			httpDurationBucketFactor,
			httpDurationBucketCount,
		),
	},
	[]string{"method", "route", "status"},
)

var ProcessLeadDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "process_lead_duration_seconds",
		Help: "Time taken to turn a captured lead into an enquiry",
		Buckets: prometheus.ExponentialBuckets(
			leadDurationBucketStart,
			leadDurationBucketFactor,
			leadDurationBucketCount,
		),
	},
	[]string{"result"},
)

var KafkaMessageLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "kafka_lead_message_latency_seconds",
		Help: "Time taken from lead production to consumption",
		Buckets: prometheus.ExponentialBuckets(
			kafkaLatencyBucketStart,
			kafkaLatencyBucketFactor,
			kafkaLatencyBucketCount,
		),
	},
)

var MinioOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "minio_operation_duration_seconds",
		Help:    "Time taken by object storage operations",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

var CallsRegistered = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "calls_registered_total",
		Help: "Call logs created, by outcome",
	},
	[]string{"outcome"},
)

var LeadsImported = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "leads_imported_total",
		Help: "Bulk import rows, by result",
	},
	[]string{"result"},
)

var EventsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Domain events handed to Kafka, by type and result",
	},
	[]string{"type", "result"},
)

var DeadLetterRetries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dead_letter_retries_total",
		Help: "Dead-letter reprocessing attempts, by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ProcessLeadDuration)
	prometheus.MustRegister(KafkaMessageLatency)
	prometheus.MustRegister(MinioOperationDuration)
	prometheus.MustRegister(CallsRegistered)
	prometheus.MustRegister(LeadsImported)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(DeadLetterRetries)
}
