package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	PostingReasonDeadlineExceeded     = "deadline_exceeded"
	PostingReasonDBLockTimeout        = "db_lock_timeout"
	PostingReasonSerializationFailure = "serialization_failure"
	PostingReasonUniqueViolation      = "unique_violation"
	PostingReasonBusinessRule         = "business_rule"
	PostingReasonUnknown              = "unknown"
)

const (
	LockResourceInvoiceByID  = "invoice_by_id"
	LockResourceBillByID     = "bill_by_id"
	LockResourceSequenceRow  = "sequence_row"
	LockResourceOrganization = "organization"
)

// PostingMetrics captures posting pipeline health signals.
type PostingMetrics struct {
	postingDuration     *prometheus.HistogramVec
	postingErrors       *prometheus.CounterVec
	documentTransitions *prometheus.CounterVec
	reportDuration      *prometheus.HistogramVec
	dbLockWait          *prometheus.HistogramVec
	lockWaitObserver    map[string]prometheus.Observer
}

var (
	postingMetricsOnce sync.Once
	postingMetrics     *PostingMetrics
)

// Posting returns the singleton posting metrics registry.
func Posting() *PostingMetrics {
	return PostingWithConfig(Config{})
}

// PostingWithConfig returns the singleton posting metrics registry using config labels.
func PostingWithConfig(cfg Config) *PostingMetrics {
	postingMetricsOnce.Do(func() {
		postingMetrics = newPostingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return postingMetrics
}

// ResetPostingMetricsForTest resets the posting metrics singleton for tests.
func ResetPostingMetricsForTest() {
	postingMetricsOnce = sync.Once{}
	postingMetrics = nil
}

func newPostingMetrics(registerer prometheus.Registerer, cfg Config) *PostingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ledgerly"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	postingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ledgerly_posting_duration_seconds",
		Help:        "Latency of ledger posting transactions by document type.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"document_type"})
	postingErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ledgerly_posting_errors_total",
		Help:        "Ledger posting failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"document_type", "reason"})
	documentTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ledgerly_document_transitions_total",
		Help:        "Document status transitions such as draft to sent or sent to paid.",
		ConstLabels: constLabels,
	}, []string{"document_type", "from", "to"})
	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ledgerly_report_duration_seconds",
		Help:        "Latency of financial report queries by report name.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"report"})
	dbLockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ledgerly_db_lock_wait_seconds",
		Help:        "DB lock wait time for SELECT FOR UPDATE on posting paths.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(
		postingDuration,
		postingErrors,
		documentTransitions,
		reportDuration,
		dbLockWait,
	)

	lockWaitObserver := map[string]prometheus.Observer{
		LockResourceInvoiceByID:  dbLockWait.WithLabelValues(LockResourceInvoiceByID),
		LockResourceBillByID:     dbLockWait.WithLabelValues(LockResourceBillByID),
		LockResourceSequenceRow:  dbLockWait.WithLabelValues(LockResourceSequenceRow),
		LockResourceOrganization: dbLockWait.WithLabelValues(LockResourceOrganization),
	}

	return &PostingMetrics{
		postingDuration:     postingDuration,
		postingErrors:       postingErrors,
		documentTransitions: documentTransitions,
		reportDuration:      reportDuration,
		dbLockWait:          dbLockWait,
		lockWaitObserver:    lockWaitObserver,
	}
}

// ObservePostingDuration records posting transaction latency in seconds.
func (m *PostingMetrics) ObservePostingDuration(documentType string, duration time.Duration) {
	if m == nil || m.postingDuration == nil {
		return
	}
	m.postingDuration.WithLabelValues(documentType).Observe(duration.Seconds())
}

// IncPostingError increments the posting error counter with classification.
func (m *PostingMetrics) IncPostingError(documentType string, err error) {
	if m == nil || m.postingErrors == nil || err == nil {
		return
	}
	m.postingErrors.WithLabelValues(documentType, ClassifyPostingReason(err)).Inc()
}

// IncDocumentTransition increments the document status transition counter.
func (m *PostingMetrics) IncDocumentTransition(documentType, from, to string) {
	if m == nil || m.documentTransitions == nil {
		return
	}
	m.documentTransitions.WithLabelValues(documentType, from, to).Inc()
}

// ObserveReportDuration records report query latency in seconds.
func (m *PostingMetrics) ObserveReportDuration(report string, duration time.Duration) {
	if m == nil || m.reportDuration == nil {
		return
	}
	m.reportDuration.WithLabelValues(report).Observe(duration.Seconds())
}

// ObserveDBLockWait records lock wait time for SELECT FOR UPDATE work.
func (m *PostingMetrics) ObserveDBLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObserver[resource]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.dbLockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifyPostingReason maps posting errors to low-cardinality reasons.
func ClassifyPostingReason(err error) string {
	if err == nil {
		return PostingReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return PostingReasonDeadlineExceeded
	}
	if isDBLockTimeout(err) {
		return PostingReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return PostingReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return PostingReasonUniqueViolation
	}
	if isDBError(err) {
		return PostingReasonUnknown
	}
	return PostingReasonBusinessRule
}

// IsPostingErrorRetryable reports whether the posting transaction should be retried.
func IsPostingErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	return isDBLockTimeout(err) || isSerializationFailure(err)
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
