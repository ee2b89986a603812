package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyPostingReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: PostingReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: PostingReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: PostingReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: PostingReasonUniqueViolation,
		},
		{
			name: "business_rule",
			err:  errors.New("invoice is not in draft status"),
			want: PostingReasonBusinessRule,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyPostingReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsPostingErrorRetryable(t *testing.T) {
	if !IsPostingErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failures should be retryable")
	}
	if !IsPostingErrorRetryable(&pgconn.PgError{Code: "55P03"}) {
		t.Fatalf("lock timeouts should be retryable")
	}
	if IsPostingErrorRetryable(gorm.ErrDuplicatedKey) {
		t.Fatalf("unique violations should not be retryable")
	}
	if IsPostingErrorRetryable(errors.New("unbalanced entry")) {
		t.Fatalf("business rule failures should not be retryable")
	}
}

func TestIncDocumentTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newPostingMetrics(registry, Config{
		ServiceName: "ledgerly",
		Environment: "test",
	})

	metrics.IncDocumentTransition("invoice", "draft", "sent")
	metrics.IncDocumentTransition("invoice", "draft", "sent")

	got := testutil.ToFloat64(metrics.documentTransitions.WithLabelValues("invoice", "draft", "sent"))
	if got != 2 {
		t.Fatalf("expected transition count 2, got %v", got)
	}
}
