package clock

import (
	"fmt"
	"sync"
	"time"
)

// NaiveLayout is the MES timestamp format: local wall-clock time with no zone.
const NaiveLayout = "2006-01-02 15:04:05"

// ParseNaive parses a local-naive MES timestamp into epoch milliseconds.
// The components are interpreted in the local zone; the value is already
// local wall-clock time, so a UTC-assuming parse would shift it.
func ParseNaive(s string) (int64, error) {
	t, err := time.ParseInLocation(NaiveLayout, s, time.Local)
	if err != nil {
		return 0, fmt.Errorf("failed to parse server time %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// FormatNaive renders epoch milliseconds in the MES timestamp format.
func FormatNaive(ms int64) string {
	return time.UnixMilli(ms).In(time.Local).Format(NaiveLayout)
}

// Estimator maintains a local estimate of current server time, derived from
// infrequent authoritative syncs plus local elapsed time. Until the first
// successful sync it degrades to the device clock.
type Estimator struct {
	mu       sync.Mutex
	serverMs int64
	syncedAt time.Time
	synced   bool
	now      func() time.Time
}

// NewEstimator constructs an Estimator backed by the system clock.
func NewEstimator() *Estimator {
	return NewEstimatorAt(time.Now)
}

// NewEstimatorAt constructs an Estimator with an injectable local clock.
func NewEstimatorAt(now func() time.Time) *Estimator {
	return &Estimator{now: now}
}

// Sync re-anchors the estimate on an authoritative server time string.
func (e *Estimator) Sync(serverTime string) error {
	ms, err := ParseNaive(serverTime)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.serverMs = ms
	e.syncedAt = e.now()
	e.synced = true
	return nil
}

// EstimateNow returns the estimated current server time in epoch
// milliseconds: last anchor plus the local time elapsed since it. Falls back
// to the device clock when never synced.
func (e *Estimator) EstimateNow() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.synced {
		return e.now().UnixMilli()
	}
	return e.serverMs + e.now().Sub(e.syncedAt).Milliseconds()
}

// Synced reports whether at least one authoritative sync has happened.
func (e *Estimator) Synced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synced
}

// Staleness returns how long ago the last sync happened, or a negative
// duration when never synced.
func (e *Estimator) Staleness() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.synced {
		return -1
	}
	return e.now().Sub(e.syncedAt)
}
