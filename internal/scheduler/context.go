package scheduler

import (
	"sync"

	"drumtrack-service/internal/models"
	"drumtrack-service/internal/schedule"
)

// Context is the process-wide snapshot shared by the poll loop and the alert
// tick: current groups and windows, pause flag, per-group phases, and the
// one-shot suppression set. Every reader and writer goes through its mutex,
// so a poll that changes the grouping fully applies before the next tick
// reads it.
type Context struct {
	mu sync.Mutex

	drumID    string
	processID int64

	groups  []models.ConfirmGroup
	windows []models.ActionWindow

	paused bool

	// phases is the explicit per-group state machine, keyed by the group's
	// confirmation timestamp. Absent key means pending.
	phases map[string]models.GroupPhase
	// suppressed guards against duplicate alerts for the same group. Cleared
	// entirely on pause and when the process changes.
	suppressed map[string]bool

	// scheduleWarning carries the data-quality warning for degenerate
	// schedules, surfaced to the operator via the state endpoint.
	scheduleWarning string
}

// NewContext constructs an empty Context for one drum.
func NewContext(drumID string) *Context {
	return &Context{
		drumID:     drumID,
		phases:     make(map[string]models.GroupPhase),
		suppressed: make(map[string]bool),
	}
}

// ApplyGroups installs a freshly computed grouping. Alert state survives a
// regroup within the same process (e.g. a video ref landing on one group) but
// is discarded wholesale when the process changes.
func (c *Context) ApplyGroups(processID int64, groups []models.ConfirmGroup, windows []models.ActionWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if processID != c.processID {
		c.phases = make(map[string]models.GroupPhase)
		c.suppressed = make(map[string]bool)
		c.processID = processID
	}
	c.groups = groups
	c.windows = windows

	c.scheduleWarning = ""
	if err := schedule.Validate(groups); err != nil {
		c.scheduleWarning = err.Error()
	}
}

// SetPaused updates the externally authoritative pause flag. Entering the
// paused state clears the suppression set, so the currently due group is
// re-alerted once resumed; the operator must not silently skip a dose
// because of a pause.
func (c *Context) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if paused && !c.paused {
		c.suppressed = make(map[string]bool)
		for ct, phase := range c.phases {
			if phase == models.PhaseAlerted {
				delete(c.phases, ct)
			}
		}
	}
	c.paused = paused
}

// Paused reports the current pause flag.
func (c *Context) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Reset discards all tracked state. Used when the MES reports the process
// gone before its final group: an externally initiated cancellation, never to
// be conflated with completion.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processID = 0
	c.groups = nil
	c.windows = nil
	c.paused = false
	c.phases = make(map[string]models.GroupPhase)
	c.suppressed = make(map[string]bool)
	c.scheduleWarning = ""
}

// ProcessID returns the currently tracked process, 0 when none.
func (c *Context) ProcessID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processID
}

// HasGroups reports whether any grouping is currently tracked.
func (c *Context) HasGroups() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups) > 0
}

// FinalGroupReached reports whether the tracked schedule has run its course:
// estimated time has passed the last group's window end. Window deadlines are
// ascending, so this implies every earlier window has closed too.
func (c *Context) FinalGroupReached(nowMs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.groups) == 0 {
		return false
	}
	last := c.windows[len(c.windows)-1]
	if last.DeadlineMs == 0 {
		return false
	}
	return nowMs >= last.DeadlineMs
}

// GroupView is one group with its window and phase, for the API.
type GroupView struct {
	Group  models.ConfirmGroup `json:"group"`
	Window models.ActionWindow `json:"window"`
	Phase  models.GroupPhase   `json:"phase"`
}

// Snapshot is a consistent copy of the tracked state for the API.
type Snapshot struct {
	DrumID          string      `json:"drum_id"`
	ProcessID       int64       `json:"process_id"`
	Paused          bool        `json:"paused"`
	ScheduleWarning string      `json:"schedule_warning,omitempty"`
	Groups          []GroupView `json:"groups"`
}

// View returns a copy of the tracked state.
func (c *Context) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		DrumID:          c.drumID,
		ProcessID:       c.processID,
		Paused:          c.paused,
		ScheduleWarning: c.scheduleWarning,
		Groups:          make([]GroupView, 0, len(c.groups)),
	}
	for i, g := range c.groups {
		phase := models.PhasePending
		if p, ok := c.phases[g.ConfirmTime]; ok {
			phase = p
		}
		snap.Groups = append(snap.Groups, GroupView{Group: g, Window: c.windows[i], Phase: phase})
	}
	return snap
}
