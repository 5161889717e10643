package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/metrics"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/schedule"
)

// Alarm is the alarm-sound collaborator. Fire and forget; failure is
// non-fatal and the alert is still surfaced.
type Alarm interface {
	Play()
	Stop()
}

// Sink receives alert lifecycle events for the presentation layer.
// Implementations must return without waiting on the network; the tick calls
// them inline and the next group's alert rides on the tick cadence.
type Sink interface {
	AlertRaised(group models.ConfirmGroup, window models.ActionWindow, budgetSeconds int)
	AlertExpired(group models.ConfirmGroup)
	AlertResolved(group models.ConfirmGroup, videoRef string)
}

// Scheduler is the alert polling loop. Once per tick it consults the clock
// estimate, the tracked grouping, and the suppression state to decide whether
// the next due group must be alerted.
type Scheduler struct {
	sctx   *Context
	clk    *clock.Estimator
	alarm  Alarm
	sink   Sink
	logger *logging.Logger

	tick   time.Duration
	leadMs int64
}

// New constructs a Scheduler. leadSeconds is how early before a group's
// scheduled time the alert starts prompting.
func New(sctx *Context, clk *clock.Estimator, alarm Alarm, sink Sink, logger *logging.Logger, tick time.Duration, leadSeconds int) *Scheduler {
	return &Scheduler{
		sctx:   sctx,
		clk:    clk,
		alarm:  alarm,
		sink:   sink,
		logger: logger,
		tick:   tick,
		leadMs: int64(leadSeconds) * 1000,
	}
}

// Start runs the fixed-period tick loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Infof("Alert scheduler stopped")
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Tick evaluates exactly one group to completion: groups are scanned in
// ascending time order, suppressed or satisfied groups are skipped, and the
// scan stops at the first group still ahead of or inside its window. Later
// groups are never evaluated in the same tick, so progression through groups
// is monotonic and one at a time. No panic escapes a tick; the timer must
// keep firing on subsequent periods.
func (s *Scheduler) Tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Scheduler tick panic recovered: %v", r)
		}
	}()
	metrics.SchedulerTicks.Inc()

	type firing struct {
		group  models.ConfirmGroup
		window models.ActionWindow
		budget int
	}
	var raised *firing
	var expired []models.ConfirmGroup

	s.sctx.mu.Lock()
	if s.sctx.paused || len(s.sctx.groups) == 0 {
		s.sctx.mu.Unlock()
		return
	}
	nowMs := s.clk.EstimateNow()

	for i, g := range s.sctx.groups {
		w := s.sctx.windows[i]
		if w.DeadlineMs == 0 {
			// unparseable confirmation timestamp, nothing to schedule
			continue
		}
		if g.HasVideo() || s.sctx.phases[g.ConfirmTime] == models.PhaseResolved {
			continue
		}
		if s.sctx.suppressed[g.ConfirmTime] {
			if s.sctx.phases[g.ConfirmTime] == models.PhaseAlerted && nowMs >= w.DeadlineMs {
				s.sctx.phases[g.ConfirmTime] = models.PhaseExpired
				expired = append(expired, g)
			}
			continue
		}
		if nowMs >= w.DeadlineMs {
			// window closed before the group was ever offered; no record of
			// the miss, move on
			s.sctx.phases[g.ConfirmTime] = models.PhaseExpired
			continue
		}
		if nowMs >= w.AlertAtMs-s.leadMs {
			s.sctx.suppressed[g.ConfirmTime] = true
			s.sctx.phases[g.ConfirmTime] = models.PhaseAlerted
			raised = &firing{
				group:  g,
				window: w,
				budget: schedule.RecordingBudget(w.DeadlineMs, nowMs),
			}
		}
		break
	}
	s.sctx.mu.Unlock()

	for _, g := range expired {
		s.logger.Warnf("Alert window expired unacknowledged: confirm_time=%s", g.ConfirmTime)
		metrics.AlertsExpired.Inc()
		s.alarm.Stop()
		s.sink.AlertExpired(g)
	}
	if raised != nil {
		s.logger.Infof("Alert raised: confirm_time=%s budget=%ds", raised.group.ConfirmTime, raised.budget)
		metrics.AlertsRaised.Inc()
		s.alarm.Play()
		s.sink.AlertRaised(raised.group, raised.window, raised.budget)
	}
}

// Acknowledge stops the alarm for an alerted group and returns the remaining
// recording budget in seconds. A zero budget is still valid: the recorder is
// invoked and force-stops immediately.
func (s *Scheduler) Acknowledge(confirmTime string) (int, error) {
	s.sctx.mu.Lock()
	defer s.sctx.mu.Unlock()

	if s.sctx.phases[confirmTime] != models.PhaseAlerted {
		return 0, fmt.Errorf("group %s is not in alerted state", confirmTime)
	}
	idx := -1
	for i, g := range s.sctx.groups {
		if g.ConfirmTime == confirmTime {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("group %s no longer tracked", confirmTime)
	}
	s.alarm.Stop()
	return schedule.RecordingBudget(s.sctx.windows[idx].DeadlineMs, s.clk.EstimateNow()), nil
}

// Resolve marks a group satisfied after a successful proof-video upload and
// attaches the server video reference to its additions.
func (s *Scheduler) Resolve(confirmTime, videoRef string) {
	var resolved *models.ConfirmGroup

	s.sctx.mu.Lock()
	for i, g := range s.sctx.groups {
		if g.ConfirmTime != confirmTime {
			continue
		}
		for j := range s.sctx.groups[i].Additions {
			s.sctx.groups[i].Additions[j].VideoRef = videoRef
		}
		s.sctx.phases[confirmTime] = models.PhaseResolved
		gc := s.sctx.groups[i]
		resolved = &gc
		break
	}
	s.sctx.mu.Unlock()

	if resolved != nil {
		s.logger.Infof("Alert resolved: confirm_time=%s video_ref=%s", confirmTime, videoRef)
		s.sink.AlertResolved(*resolved, videoRef)
	}
}

// Reopen puts a group back to pending after a recording or upload failure,
// removing its suppression entry so the next tick re-alerts it.
func (s *Scheduler) Reopen(confirmTime string) {
	s.sctx.mu.Lock()
	defer s.sctx.mu.Unlock()

	delete(s.sctx.suppressed, confirmTime)
	delete(s.sctx.phases, confirmTime)
	s.logger.Warnf("Group reopened for re-alerting: confirm_time=%s", confirmTime)
}
