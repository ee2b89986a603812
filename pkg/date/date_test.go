package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", d.String())

	_, err = Parse("15/03/2025")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2025, time.March, 15)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-15"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))
}

func TestJSONNull(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.True(t, d.IsZero())

	raw, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestDaysSince(t *testing.T) {
	a := New(2025, time.March, 1)
	b := New(2025, time.March, 31)
	assert.Equal(t, 30, b.DaysSince(a))
	assert.Equal(t, -30, a.DaysSince(b))
}

func TestScanVariants(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2025, 3, 15, 17, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-15", d.String())

	require.NoError(t, d.Scan("2025-03-15"))
	assert.Equal(t, "2025-03-15", d.String())

	require.NoError(t, d.Scan("2025-03-15 00:00:00+00:00"))
	assert.Equal(t, "2025-03-15", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}

func TestTodayUsesLocation(t *testing.T) {
	// 2025-03-15 23:30 UTC is already 03-16 in Tokyo.
	now := time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-15", Today(now, time.UTC).String())
	assert.Equal(t, "2025-03-16", Today(now, tokyo).String())
}
