package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAgingBucketsAreContiguous(t *testing.T) {
	cfg := DefaultReportingConfig()
	require.Len(t, cfg.AgingBuckets, 5)
	require.NoError(t, validateAgingBuckets(cfg.AgingBuckets))

	assert.Equal(t, "current", cfg.AgingBuckets[0].Label)
	assert.Equal(t, "90+", cfg.AgingBuckets[4].Label)
	assert.Nil(t, cfg.AgingBuckets[4].MaxDays)
}

func TestAgingBucketContains(t *testing.T) {
	cfg := DefaultReportingConfig()

	bucketFor := func(days int) string {
		for _, b := range cfg.AgingBuckets {
			if b.Contains(days) {
				return b.Label
			}
		}
		return ""
	}

	assert.Equal(t, "current", bucketFor(0))
	assert.Equal(t, "1-30", bucketFor(1))
	assert.Equal(t, "1-30", bucketFor(30))
	assert.Equal(t, "31-60", bucketFor(31))
	assert.Equal(t, "61-90", bucketFor(90))
	assert.Equal(t, "90+", bucketFor(91))
	assert.Equal(t, "90+", bucketFor(365))
}

func TestValidateAgingBucketsRejectsGaps(t *testing.T) {
	buckets := []AgingBucket{
		{Label: "current", MinDays: 0, MaxDays: intPtr(0)},
		{Label: "5-30", MinDays: 5, MaxDays: intPtr(30)},
		{Label: "30+", MinDays: 31, MaxDays: nil},
	}
	err := validateAgingBuckets(buckets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap")
}

func TestValidateAgingBucketsRejectsClosedTail(t *testing.T) {
	buckets := []AgingBucket{
		{Label: "current", MinDays: 0, MaxDays: intPtr(0)},
		{Label: "1-30", MinDays: 1, MaxDays: intPtr(30)},
	}
	err := validateAgingBuckets(buckets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open ended")
}
