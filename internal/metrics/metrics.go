// Package metrics defines the Prometheus metrics of the bot.
// Every Record method is safe on a nil *Metrics, so components can run without a registry
// (the terminal client and most tests do).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Recognizer metrics
	RecognizerRequestsTotal   *prometheus.CounterVec
	RecognizerDurationSeconds *prometheus.HistogramVec
	RecognizerFallbackTotal   *prometheus.CounterVec
	IntentsTotal              *prometheus.CounterVec

	// Dialog metrics
	DialogTransitionsTotal *prometheus.CounterVec
	DialogRepromptsTotal   *prometheus.CounterVec
	DialogRetriesExhausted *prometheus.CounterVec
	ConversationsEnded     *prometheus.CounterVec
	YesNoTotal             *prometheus.CounterVec

	// Session store metrics
	SessionOpsTotal       *prometheus.CounterVec
	SessionOpDuration     *prometheus.HistogramVec
	SingleflightDedupTotal prometheus.Counter

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Archive metrics
	ArchiveUploadsTotal      *prometheus.CounterVec
	ArchivedTranscriptsTotal prometheus.Counter

	// Log shipping
	LogRecordsDropped *prometheus.CounterVec

	// Background job and size metrics
	JobDurationSeconds *prometheus.HistogramVec
	StoredItems        *prometheus.GaugeVec
	ActiveChats        prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"}, // message, follow, unfollow
		),
		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		RecognizerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_recognizer_requests_total",
				Help: "Total recognizer calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, timeout
		),
		RecognizerDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_recognizer_duration_seconds",
				Help:    "Recognizer call duration in seconds by provider",
				Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2, 5, 12},
			},
			[]string{"provider"},
		),
		RecognizerFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_recognizer_fallback_total",
				Help: "Total provider fallbacks by source and target provider",
			},
			[]string{"from", "to"},
		),
		IntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_intents_total",
				Help: "Recognized top intents",
			},
			[]string{"intent"},
		),

		DialogTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_dialog_transitions_total",
				Help: "Topic transitions by source and target topic",
			},
			[]string{"from", "to"},
		),
		DialogRepromptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_dialog_reprompts_total",
				Help: "Re-prompts of the same step by topic and reason",
			},
			[]string{"topic", "reason"}, // reason: none, unknown_yesno, ambiguous_yesno
		),
		DialogRetriesExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_dialog_retries_exhausted_total",
				Help: "Steps abandoned after the retry bound was reached",
			},
			[]string{"topic"},
		),
		ConversationsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_conversations_ended_total",
				Help: "Conversations that reached Done by reason",
			},
			[]string{"reason"}, // confirmed, completed, cancelled, expired
		),
		YesNoTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_yesno_classifications_total",
				Help: "Yes/no classifications by result",
			},
			[]string{"result"},
		),

		SessionOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_session_ops_total",
				Help: "Session store operations by backend, operation and status",
			},
			[]string{"backend", "op", "status"},
		),
		SessionOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_session_op_duration_seconds",
				Help:    "Session store operation duration by backend and operation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"backend", "op"},
		),
		SingleflightDedupTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "campusbot_singleflight_dedup_total",
				Help: "Profile lookups that joined an in-flight lookup for the same user",
			},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_rate_limiter_dropped_total",
				Help: "Total number of turns dropped by rate limiter",
			},
			[]string{"limiter_type"}, // user, global, reply
		),

		LogRecordsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_log_records_dropped_total",
				Help: "Log records discarded by the remote shipping queue",
			},
			[]string{"reason"}, // queue_full, closed
		),

		ArchiveUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_archive_uploads_total",
				Help: "Transcript archive uploads by status",
			},
			[]string{"status"},
		),
		ArchivedTranscriptsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "campusbot_archived_transcripts_total",
				Help: "Transcripts written to the archive bucket",
			},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"job"}, // session_cleanup, archive
		),
		StoredItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campusbot_stored_items",
				Help: "Rows in the local database by kind",
			},
			[]string{"kind"}, // conversations, transcripts, transcripts_unarchived
		),
		ActiveChats: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "campusbot_active_chats",
				Help: "Chats with a live rate limiter bucket",
			},
		),
	}
}

// RecordWebhook records a processed webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordRecognizer records one recognizer call
func (m *Metrics) RecordRecognizer(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RecognizerRequestsTotal.WithLabelValues(provider, status).Inc()
	m.RecognizerDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRecognizerFallback records a switch from one provider to the next
func (m *Metrics) RecordRecognizerFallback(from, to string) {
	if m == nil {
		return
	}
	m.RecognizerFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordIntent records a recognized top intent
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordTransition records a topic change
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.DialogTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordReprompt records a re-prompt of the current step
func (m *Metrics) RecordReprompt(topic, reason string) {
	if m == nil {
		return
	}
	m.DialogRepromptsTotal.WithLabelValues(topic, reason).Inc()
}

// RecordRetriesExhausted records a step abandoned after too many re-prompts
func (m *Metrics) RecordRetriesExhausted(topic string) {
	if m == nil {
		return
	}
	m.DialogRetriesExhausted.WithLabelValues(topic).Inc()
}

// RecordConversationEnded records a conversation reaching Done
func (m *Metrics) RecordConversationEnded(reason string) {
	if m == nil {
		return
	}
	m.ConversationsEnded.WithLabelValues(reason).Inc()
}

// RecordYesNo records a yes/no classification
func (m *Metrics) RecordYesNo(result string) {
	if m == nil {
		return
	}
	m.YesNoTotal.WithLabelValues(result).Inc()
}

// RecordSessionOp records a session store operation
func (m *Metrics) RecordSessionOp(backend, op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionOpsTotal.WithLabelValues(backend, op, status).Inc()
	m.SessionOpDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordSingleflightDedup records a deduplicated session load
func (m *Metrics) RecordSingleflightDedup() {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.Inc()
}

// RecordRateLimiterDrop records a turn dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordLogDropped records a log record the shipping queue discarded
func (m *Metrics) RecordLogDropped(reason string) {
	if m == nil {
		return
	}
	m.LogRecordsDropped.WithLabelValues(reason).Inc()
}

// RecordArchiveUpload records an archive upload and how many transcripts it carried
func (m *Metrics) RecordArchiveUpload(status string, transcripts int) {
	if m == nil {
		return
	}
	m.ArchiveUploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.ArchivedTranscriptsTotal.Add(float64(transcripts))
	}
}

// RecordJob records one run of a background job
func (m *Metrics) RecordJob(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

// SetStoredItems sets the row count of one kind of stored item
func (m *Metrics) SetStoredItems(kind string, n int) {
	if m == nil {
		return
	}
	m.StoredItems.WithLabelValues(kind).Set(float64(n))
}

// SetActiveChats sets the number of chats tracked by the rate limiter
func (m *Metrics) SetActiveChats(n int) {
	if m == nil {
		return
	}
	m.ActiveChats.Set(float64(n))
}
