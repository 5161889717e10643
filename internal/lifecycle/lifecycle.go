package lifecycle

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/mes"
	"drumtrack-service/internal/metrics"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/schedule"
	"drumtrack-service/internal/scheduler"
)

// Sink receives terminal lifecycle events and poll-failure notifications for
// the presentation layer.
type Sink interface {
	ProcessCompleted(drumID string, processID int64)
	ProcessReset(drumID string, processID int64)
	PollFailed(drumID string, err error)
}

// Lifecycle reconciles the periodically polled MES state with the local
// schedule: it re-anchors the clock, regroups on addition-list changes,
// derives the pause flag, and detects process completion and replacement.
type Lifecycle struct {
	client mes.Client
	sctx   *scheduler.Context
	clk    *clock.Estimator
	sched  *scheduler.Scheduler
	sink   Sink
	logger *logging.Logger
	drumID string

	mu            sync.Mutex
	interval      time.Duration
	maxTimeRecord int

	// poll-goroutine state, no locking needed
	lastAdditions []models.ChemicalAddition
	completed     bool
}

// New constructs a Lifecycle polling at the given default interval until the
// MES supplies its own inspection time.
func New(client mes.Client, sctx *scheduler.Context, clk *clock.Estimator, sched *scheduler.Scheduler, sink Sink, logger *logging.Logger, drumID string, interval time.Duration, maxTimeRecord int) *Lifecycle {
	return &Lifecycle{
		client:        client,
		sctx:          sctx,
		clk:           clk,
		sched:         sched,
		sink:          sink,
		logger:        logger,
		drumID:        drumID,
		interval:      interval,
		maxTimeRecord: maxTimeRecord,
	}
}

// Run polls until ctx is cancelled. The timer is created fresh every
// iteration, so an interval change from the MES takes effect on the next
// cycle without two overlapping timers for the same duty.
func (l *Lifecycle) Run(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.pollOnce(ctx)
		for {
			timer := time.NewTimer(l.Interval())
			select {
			case <-ctx.Done():
				timer.Stop()
				l.logger.Infof("Poll loop stopped for drum %s", l.drumID)
				return
			case <-timer.C:
				l.pollOnce(ctx)
			}
		}
	}()
}

// Interval returns the current poll period.
func (l *Lifecycle) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// MaxTimeRecord returns the configured default recording ceiling in seconds.
func (l *Lifecycle) MaxTimeRecord() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxTimeRecord
}

func (l *Lifecycle) pollOnce(ctx context.Context) {
	state, err := l.client.FetchRunningState(ctx, l.drumID)
	if err != nil {
		// recovered on the next timer tick; existing schedule and
		// suppression state stay untouched
		metrics.PollFailures.Inc()
		l.logger.Warnf("Poll failed for drum %s: %v", l.drumID, err)
		l.sink.PollFailed(l.drumID, err)
		return
	}
	l.Apply(state)
}

// Apply reconciles one poll result. Repeated polls reporting unchanged data
// are no-ops: comparisons are by deep equality of the addition list, never by
// poll count.
func (l *Lifecycle) Apply(state models.RunningState) {
	if state.ServerTime != "" {
		if err := l.clk.Sync(state.ServerTime); err != nil {
			l.logger.Warnf("Clock sync failed: %v", err)
		}
	}
	if !l.clk.Synced() {
		l.logger.Warnf("No server time sync yet, estimating from device clock")
	}

	l.applyConfig(state.Config)

	if state.Process == nil || len(state.Additions) == 0 {
		l.reconcileGone(state.Process == nil)
		return
	}

	changed := !reflect.DeepEqual(state.Additions, l.lastAdditions)
	if changed {
		groups := schedule.Group(state.Additions)
		if err := schedule.Validate(groups); err != nil {
			l.logger.Warnf("Schedule quality warning for drum %s: %v", l.drumID, err)
		}
		l.sctx.ApplyGroups(state.Process.ID, groups, schedule.Windows(groups))
		l.lastAdditions = append([]models.ChemicalAddition(nil), state.Additions...)
		l.completed = false
		l.logger.Infof("Schedule regrouped: drum=%s process=%d groups=%d", l.drumID, state.Process.ID, len(groups))
	}

	l.sctx.SetPaused(state.Process.Paused())

	if changed {
		// immediate one-shot evaluation: an app opened mid-window must alert
		// without waiting for the next periodic tick
		l.sched.Tick()
	}
}

func (l *Lifecycle) applyConfig(cfg models.RunningConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cfg.InspectionTime > 0 {
		next := time.Duration(cfg.InspectionTime) * time.Second
		if next != l.interval {
			l.logger.Infof("Poll interval changed: %v -> %v", l.interval, next)
			l.interval = next
		}
	}
	if cfg.MaxTimeRecord > 0 {
		l.maxTimeRecord = cfg.MaxTimeRecord
	}
}

// reconcileGone handles a poll that reports no process or no detail rows.
// Two distinct cases that must never be conflated: the schedule ran its
// course (completion) versus the process was replaced or cancelled externally
// before its final group (reset).
func (l *Lifecycle) reconcileGone(processGone bool) {
	if !l.sctx.HasGroups() {
		return
	}
	processID := l.sctx.ProcessID()
	nowMs := l.clk.EstimateNow()

	if l.sctx.FinalGroupReached(nowMs) {
		if !l.completed {
			l.completed = true
			l.logger.Infof("Process %d completed on drum %s", processID, l.drumID)
			l.sink.ProcessCompleted(l.drumID, processID)
		}
		l.sctx.Reset()
		l.lastAdditions = nil
		return
	}

	if processGone {
		l.logger.Warnf("Process %d gone before final group on drum %s, discarding local state", processID, l.drumID)
		l.sctx.Reset()
		l.lastAdditions = nil
		l.completed = false
		l.sink.ProcessReset(l.drumID, processID)
	}
	// process still present but detail rows missing mid-schedule: transient,
	// keep state and wait for the next poll
}

// RequestPause asks the MES to pause and flips the local flag only after the
// server confirms. On failure nothing changes locally and the operator is
// told to retry.
func (l *Lifecycle) RequestPause(ctx context.Context) error {
	if err := l.client.RequestPause(ctx, l.drumID); err != nil {
		return fmt.Errorf("pause request rejected: %w", err)
	}
	l.sctx.SetPaused(true)
	return nil
}

// RequestResume asks the MES to resume; same confirmation rule as pause.
func (l *Lifecycle) RequestResume(ctx context.Context) error {
	if err := l.client.RequestResume(ctx, l.drumID); err != nil {
		return fmt.Errorf("resume request rejected: %w", err)
	}
	l.sctx.SetPaused(false)
	return nil
}
