package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNaiveUsesLocalZone(t *testing.T) {
	ms, err := ParseNaive("2024-01-01 10:00:00")
	require.NoError(t, err)

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local).UnixMilli()
	assert.Equal(t, want, ms)
}

func TestParseNaiveRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "2024-01-01", "2024-01-01T10:00:00Z", "not a time"} {
		_, err := ParseNaive(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestFormatNaiveRoundTrip(t *testing.T) {
	ms, err := ParseNaive("2024-06-15 08:30:45")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15 08:30:45", FormatNaive(ms))
}

func TestEstimateNowTracksLocalElapsed(t *testing.T) {
	base := time.Now()
	current := base
	e := NewEstimatorAt(func() time.Time { return current })

	require.NoError(t, e.Sync("2024-01-01 10:00:00"))
	anchor, err := ParseNaive("2024-01-01 10:00:00")
	require.NoError(t, err)

	current = base.Add(5 * time.Second)
	assert.Equal(t, int64(5000), e.EstimateNow()-anchor)
}

func TestEstimateNowFallsBackToDeviceClock(t *testing.T) {
	base := time.Now()
	e := NewEstimatorAt(func() time.Time { return base })

	assert.False(t, e.Synced())
	assert.Equal(t, base.UnixMilli(), e.EstimateNow())
}

func TestSyncReanchors(t *testing.T) {
	base := time.Now()
	current := base
	e := NewEstimatorAt(func() time.Time { return current })

	require.NoError(t, e.Sync("2024-01-01 10:00:00"))
	current = base.Add(time.Minute)

	// fresh sync discards accumulated drift
	require.NoError(t, e.Sync("2024-01-01 10:00:30"))
	anchor, err := ParseNaive("2024-01-01 10:00:30")
	require.NoError(t, err)
	assert.Equal(t, anchor, e.EstimateNow())
}

func TestSyncRejectsMalformedTime(t *testing.T) {
	e := NewEstimator()
	assert.Error(t, e.Sync("bogus"))
	assert.False(t, e.Synced())
}

func TestStaleness(t *testing.T) {
	base := time.Now()
	current := base
	e := NewEstimatorAt(func() time.Time { return current })

	assert.Negative(t, int64(e.Staleness()))

	require.NoError(t, e.Sync("2024-01-01 10:00:00"))
	current = base.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, e.Staleness())
}
