package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Contract read metrics
	// ============================================
	ContractReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zorp_contract_reads_total",
			Help: "Total number of contract read calls",
		},
		[]string{"method"},
	)

	ContractReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zorp_contract_read_errors_total",
			Help: "Total number of failed contract read calls",
		},
		[]string{"method"},
	)

	ContractWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zorp_contract_writes_total",
			Help: "Total number of contract write transactions sent",
		},
		[]string{"method", "outcome"},
	)

	// ============================================
	// Storage gateway metrics
	// ============================================
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zorp_irys_request_duration_seconds",
			Help:    "Irys node/gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zorp_irys_upload_bytes_total",
		Help: "Total ciphertext bytes uploaded to Irys",
	})

	// ============================================
	// Submission pipeline metrics
	// ============================================
	SubmissionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zorp_submission_attempts_total",
			Help: "Total submission attempts by terminal outcome",
		},
		[]string{"action", "outcome"},
	)

	SubmissionStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zorp_submission_stage_failures_total",
			Help: "Submission attempt failures by pipeline stage",
		},
		[]string{"stage"},
	)

	// ============================================
	// Eligibility snapshot metrics
	// ============================================
	EligibilityPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zorp_eligibility_polls_total",
		Help: "Total eligibility polling rounds completed",
	})

	EligibilityStaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zorp_eligibility_stale_discards_total",
		Help: "Polling rounds discarded because the target address changed mid-flight",
	})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zorp_open_sessions",
		Help: "Number of open submission sessions",
	})
)
