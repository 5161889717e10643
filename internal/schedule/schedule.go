package schedule

import (
	"errors"
	"fmt"
	"sort"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/models"
)

// GroupBufferMs is the slack around a scheduled confirmation: the operator
// gets at least 30 seconds after the scheduled instant, and the window closes
// 30 seconds before the next group is due.
const GroupBufferMs = 30_000

// ErrDegenerateSchedule marks a process whose additions carry fewer than two
// distinct confirmation timestamps. Surfaced as a data-quality warning.
var ErrDegenerateSchedule = errors.New("schedule has fewer than two distinct confirmation timestamps")

// Group buckets additions by exact string equality of their confirmation
// timestamp and returns the groups sorted ascending. The MES emits identical
// strings for same-batch entries, so no time bucketing is applied.
// Lexicographic order is valid because the format is fixed-width and
// zero-padded. Additions without a confirmation timestamp are dropped.
func Group(additions []models.ChemicalAddition) []models.ConfirmGroup {
	byTime := make(map[string][]models.ChemicalAddition)
	for _, a := range additions {
		if a.ConfirmTime == "" {
			continue
		}
		byTime[a.ConfirmTime] = append(byTime[a.ConfirmTime], a)
	}

	groups := make([]models.ConfirmGroup, 0, len(byTime))
	for ct, adds := range byTime {
		sort.SliceStable(adds, func(i, j int) bool { return adds[i].ID < adds[j].ID })
		groups = append(groups, models.ConfirmGroup{ConfirmTime: ct, Additions: adds})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ConfirmTime < groups[j].ConfirmTime })
	return groups
}

// Validate reports a data-quality warning for degenerate schedules. A single
// distinct timestamp still alerts; the warning is surfaced, not enforced.
func Validate(groups []models.ConfirmGroup) error {
	if len(groups) < 2 {
		return fmt.Errorf("%w (got %d)", ErrDegenerateSchedule, len(groups))
	}
	return nil
}

// WindowFor computes the action window of groups[i]:
//
//	not last: deadline = max(scheduled+30s, next scheduled-30s)
//	last:     deadline = scheduled + max(1, operateTime)*1min - 30s
//
// The asymmetric buffer leaves the operator room to physically act without
// colliding with the next scheduled addition.
func WindowFor(groups []models.ConfirmGroup, i int) (models.ActionWindow, error) {
	if i < 0 || i >= len(groups) {
		return models.ActionWindow{}, fmt.Errorf("group index %d out of range [0,%d)", i, len(groups))
	}
	scheduledMs, err := clock.ParseNaive(groups[i].ConfirmTime)
	if err != nil {
		return models.ActionWindow{}, err
	}

	var deadlineMs int64
	if i < len(groups)-1 {
		nextMs, err := clock.ParseNaive(groups[i+1].ConfirmTime)
		if err != nil {
			return models.ActionWindow{}, err
		}
		deadlineMs = scheduledMs + GroupBufferMs
		if next := nextMs - GroupBufferMs; next > deadlineMs {
			deadlineMs = next
		}
	} else {
		minutes := 1
		if len(groups[i].Additions) > 0 && groups[i].Additions[0].OperateTime > minutes {
			minutes = groups[i].Additions[0].OperateTime
		}
		deadlineMs = scheduledMs + int64(minutes)*60_000 - GroupBufferMs
	}

	return models.ActionWindow{AlertAtMs: scheduledMs, DeadlineMs: deadlineMs}, nil
}

// Windows computes the action window of every group. Groups with an
// unparseable timestamp yield a zero window, which the scheduler skips.
func Windows(groups []models.ConfirmGroup) []models.ActionWindow {
	out := make([]models.ActionWindow, len(groups))
	for i := range groups {
		w, err := WindowFor(groups, i)
		if err != nil {
			continue
		}
		out[i] = w
	}
	return out
}

// RecordingBudget converts the remaining action window into the hard ceiling
// in seconds handed to the recorder. Zero means immediate forced stop; the
// recorder is still invoked, never skipped.
func RecordingBudget(deadlineMs, estimatedNowMs int64) int {
	remaining := (deadlineMs - estimatedNowMs) / 1000
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}
