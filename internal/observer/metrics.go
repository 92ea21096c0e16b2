package observer

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled = true

var (
	frameLabels = []string{"frame_type", "consumer_type"}

	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_frames_received_total",
			Help: "Inbound client frames received from NATS.",
		},
		frameLabels,
	)
	FramesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_frames_processed_total",
			Help: "Inbound client frames handled and acknowledged.",
		},
		frameLabels,
	)
	FramesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_frames_failed_total",
			Help: "Inbound client frames that were nak'ed or terminated.",
		},
		frameLabels,
	)
	FrameProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_delivery_frame_processing_duration_seconds",
			Help:    "Histogram of inbound frame processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		frameLabels,
	)

	FrameActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_frame_actions_total",
			Help: "Acknowledgement decisions taken for inbound frames.",
		},
		[]string{"frame_type", "consumer_type", "action"},
	)

	MessagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_messages_stored_total",
			Help: "Messages persisted, by sender and message type.",
		},
		[]string{"sender_type", "message_type", "origin"},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_broadcasts_total",
			Help: "Broadcast attempts per sink, labeled by outcome.",
		},
		[]string{"sink", "event_type", "status"},
	)
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_delivery_stream_subscribers",
		Help: "Currently connected in-process topic subscribers.",
	})
	StreamDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_delivery_stream_dropped_total",
		Help: "Events dropped because a subscriber buffer was full.",
	})

	AutoRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_auto_replies_total",
			Help: "Out-of-hours auto replies, labeled sent or throttled.",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		},
		[]string{"method", "route", "code"},
	)
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_delivery_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_delivery_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"operation", "entity", "status"},
	)

	LoadgenFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_loadgen_frames_total",
			Help: "Frames handled by the load generator, labeled attempted, published or error.",
		},
		[]string{"frame_type", "status"},
	)

	workerPoolRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chat_delivery_worker_pool_running",
		Help: "Running goroutines in a worker pool.",
	}, []string{"pool"})
)

// InitMetrics toggles collection. promauto registers everything at init.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

func IncFramesReceived(frameType, consumerType string) {
	if !metricsEnabled {
		return
	}
	FramesReceivedTotal.WithLabelValues(sanitize(frameType), consumerType).Inc()
}

func IncFramesProcessed(frameType, consumerType string) {
	if !metricsEnabled {
		return
	}
	FramesProcessedTotal.WithLabelValues(sanitize(frameType), consumerType).Inc()
}

func IncFramesFailed(frameType, consumerType string) {
	if !metricsEnabled {
		return
	}
	FramesFailedTotal.WithLabelValues(sanitize(frameType), consumerType).Inc()
}

func ObserveFrameProcessingDuration(frameType, consumerType string, d time.Duration) {
	if !metricsEnabled {
		return
	}
	FrameProcessingDurationSeconds.WithLabelValues(sanitize(frameType), consumerType).Observe(d.Seconds())
}

// IncFrameAction counts the ack decision for a frame: ack, nak_retry, term or panic_nak.
func IncFrameAction(frameType, consumerType, action string) {
	if !metricsEnabled {
		return
	}
	FrameActionsTotal.WithLabelValues(sanitize(frameType), consumerType, action).Inc()
}

// IncMessagesStored counts a persisted message. origin is "client", "welcome" or "auto_reply".
func IncMessagesStored(senderType, messageType, origin string) {
	if !metricsEnabled {
		return
	}
	MessagesStoredTotal.WithLabelValues(sanitize(senderType), sanitize(messageType), origin).Inc()
}

// IncBroadcast counts one publish attempt on a sink.
func IncBroadcast(sink, eventType string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	BroadcastsTotal.WithLabelValues(sink, eventType, status).Inc()
}

func SetStreamSubscribers(n int) {
	if !metricsEnabled {
		return
	}
	StreamSubscribers.Set(float64(n))
}

func IncStreamDropped() {
	if !metricsEnabled {
		return
	}
	StreamDroppedTotal.Inc()
}

// IncAutoReply records whether an out-of-hours reply was sent or throttled.
func IncAutoReply(sent bool) {
	if !metricsEnabled {
		return
	}
	status := "sent"
	if !sent {
		status = "throttled"
	}
	AutoRepliesTotal.WithLabelValues(status).Inc()
}

func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if !metricsEnabled {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

func IncLoadgenFrame(frameType, status string) {
	if !metricsEnabled {
		return
	}
	LoadgenFramesTotal.WithLabelValues(sanitize(frameType), status).Inc()
}

func SetWorkerPoolRunning(pool string, n int) {
	if !metricsEnabled {
		return
	}
	workerPoolRunning.WithLabelValues(pool).Set(float64(n))
}

func sanitize(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
