package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/scheduler"
)

type fakeMES struct {
	state     models.RunningState
	fetchErr  error
	pauseErr  error
	resumeErr error

	fetches int
}

func (m *fakeMES) FetchRunningState(context.Context, string) (models.RunningState, error) {
	m.fetches++
	return m.state, m.fetchErr
}

func (m *fakeMES) RequestPause(context.Context, string) error  { return m.pauseErr }
func (m *fakeMES) RequestResume(context.Context, string) error { return m.resumeErr }
func (m *fakeMES) AttachVideo(context.Context, string, string, string) error {
	return nil
}

type fakeLifeSink struct {
	completed []int64
	resets    []int64
	pollFails int
}

func (s *fakeLifeSink) ProcessCompleted(_ string, processID int64) {
	s.completed = append(s.completed, processID)
}

func (s *fakeLifeSink) ProcessReset(_ string, processID int64) {
	s.resets = append(s.resets, processID)
}

func (s *fakeLifeSink) PollFailed(string, error) { s.pollFails++ }

type fakeAlarm struct{}

func (fakeAlarm) Play() {}
func (fakeAlarm) Stop() {}

type countingSink struct{ raised int }

func (s *countingSink) AlertRaised(models.ConfirmGroup, models.ActionWindow, int) { s.raised++ }
func (s *countingSink) AlertExpired(models.ConfirmGroup)                          {}
func (s *countingSink) AlertResolved(models.ConfirmGroup, string)                 {}

type fixture struct {
	life   *Lifecycle
	mes    *fakeMES
	sctx   *scheduler.Context
	sink   *fakeLifeSink
	alerts *countingSink
	setAt  func(string)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := time.Now()
	current := base
	clk := clock.NewEstimatorAt(func() time.Time { return current })
	require.NoError(t, clk.Sync("2024-01-01 09:00:00"))
	anchor, err := clock.ParseNaive("2024-01-01 09:00:00")
	require.NoError(t, err)
	setAt := func(ts string) {
		ms, err := clock.ParseNaive(ts)
		require.NoError(t, err)
		current = base.Add(time.Duration(ms-anchor) * time.Millisecond)
	}

	sctx := scheduler.NewContext("drum-1")
	alerts := &countingSink{}
	sched := scheduler.New(sctx, clk, fakeAlarm{}, alerts, logging.NewNop(), 10*time.Second, 10)
	client := &fakeMES{}
	sink := &fakeLifeSink{}
	life := New(client, sctx, clk, sched, sink, logging.NewNop(), "drum-1", 30*time.Second, 300)
	return &fixture{life: life, mes: client, sctx: sctx, sink: sink, alerts: alerts, setAt: setAt}
}

func runningState(processID int64, additions ...models.ChemicalAddition) models.RunningState {
	return models.RunningState{
		Process:   &models.ProcessDescriptor{ID: processID, DrumID: "drum-1"},
		Additions: additions,
	}
}

func addition(id int64, confirmTime string, operateMinutes int) models.ChemicalAddition {
	return models.ChemicalAddition{ID: id, ProcessID: 1, ConfirmTime: confirmTime, OperateTime: operateMinutes}
}

func TestApplyInstallsSchedule(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")

	f.life.Apply(runningState(7,
		addition(1, "2024-01-01 10:00:00", 5),
		addition(2, "2024-01-01 10:00:00", 5),
		addition(3, "2024-01-01 10:05:00", 5),
	))

	snap := f.sctx.View()
	assert.Equal(t, int64(7), snap.ProcessID)
	require.Len(t, snap.Groups, 2)
	assert.Len(t, snap.Groups[0].Group.Additions, 2)
}

func TestUnchangedPollLeavesAlertStateAlone(t *testing.T) {
	f := newFixture(t)
	state := runningState(7, addition(1, "2024-01-01 10:00:00", 5))

	f.setAt("2024-01-01 10:00:05")
	f.life.Apply(state)
	require.Equal(t, 1, f.alerts.raised)

	// identical additions on the next poll, no regroup and no duplicate alert
	for i := 0; i < 3; i++ {
		f.life.Apply(state)
	}
	assert.Equal(t, 1, f.alerts.raised)
}

func TestChangedAdditionsRegroupWithinProcess(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 10:00:05")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))
	require.Equal(t, 1, f.alerts.raised)

	// a weight correction changes the rows but not the process; the alerted
	// group stays suppressed through the regroup
	updated := addition(1, "2024-01-01 10:00:00", 5)
	updated.ActualWeight = 12.5
	f.life.Apply(runningState(7, updated))

	assert.Equal(t, 1, f.alerts.raised)
	snap := f.sctx.View()
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, 12.5, snap.Groups[0].Group.Additions[0].ActualWeight)
}

func TestImmediateEvaluationOnFirstPoll(t *testing.T) {
	f := newFixture(t)

	// app comes up mid-window: the alert must not wait for the periodic tick
	f.setAt("2024-01-01 10:00:05")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	assert.Equal(t, 1, f.alerts.raised)
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	// last window ends 10:04:30; the process disappearing after that is a
	// normal completion
	f.setAt("2024-01-01 10:04:31")
	f.life.Apply(models.RunningState{})

	assert.Equal(t, []int64{7}, f.sink.completed)
	assert.Empty(t, f.sink.resets)
	assert.False(t, f.sctx.HasGroups())

	f.life.Apply(models.RunningState{})
	f.life.Apply(models.RunningState{})
	assert.Len(t, f.sink.completed, 1)
}

func TestProcessGoneMidScheduleResets(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	f.setAt("2024-01-01 10:01:00")
	f.life.Apply(models.RunningState{})

	assert.Equal(t, []int64{7}, f.sink.resets)
	assert.Empty(t, f.sink.completed)
	assert.False(t, f.sctx.HasGroups())
}

func TestEmptyAdditionsWithLiveProcessIsTransient(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	// detail rows momentarily missing but the process header is still there
	f.setAt("2024-01-01 10:01:00")
	f.life.Apply(models.RunningState{Process: &models.ProcessDescriptor{ID: 7, DrumID: "drum-1"}})

	assert.True(t, f.sctx.HasGroups())
	assert.Empty(t, f.sink.resets)
	assert.Empty(t, f.sink.completed)
}

func TestPauseDerivedFromTimestamps(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")

	state := runningState(7, addition(1, "2024-01-01 10:00:00", 5))
	state.Process.PauseTime = "2024-01-01 09:20:00"
	f.life.Apply(state)
	assert.True(t, f.sctx.Paused())

	state.Process.ResumeTime = "2024-01-01 09:25:00"
	f.life.Apply(state)
	assert.False(t, f.sctx.Paused())
}

func TestServerConfigAdjustsIntervalAndCeiling(t *testing.T) {
	f := newFixture(t)
	state := runningState(7, addition(1, "2024-01-01 10:00:00", 5))
	state.ServerTime = "2024-01-01 09:30:00"
	state.Config = models.RunningConfig{InspectionTime: 60, MaxTimeRecord: 120}

	f.life.Apply(state)

	assert.Equal(t, time.Minute, f.life.Interval())
	assert.Equal(t, 120, f.life.MaxTimeRecord())
}

func TestZeroConfigKeepsDefaults(t *testing.T) {
	f := newFixture(t)

	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	assert.Equal(t, 30*time.Second, f.life.Interval())
	assert.Equal(t, 300, f.life.MaxTimeRecord())
}

func TestPollFailureKeepsScheduleAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.setAt("2024-01-01 09:30:00")
	f.life.Apply(runningState(7, addition(1, "2024-01-01 10:00:00", 5)))

	f.mes.fetchErr = errors.New("connection refused")
	f.life.pollOnce(context.Background())

	assert.Equal(t, 1, f.sink.pollFails)
	assert.True(t, f.sctx.HasGroups())
}

func TestRequestPauseOnlyFlipsAfterServerConfirms(t *testing.T) {
	f := newFixture(t)

	f.mes.pauseErr = errors.New("MES returned status 500")
	err := f.life.RequestPause(context.Background())
	assert.Error(t, err)
	assert.False(t, f.sctx.Paused())

	f.mes.pauseErr = nil
	require.NoError(t, f.life.RequestPause(context.Background()))
	assert.True(t, f.sctx.Paused())

	f.mes.resumeErr = errors.New("MES returned status 500")
	err = f.life.RequestResume(context.Background())
	assert.Error(t, err)
	assert.True(t, f.sctx.Paused())

	f.mes.resumeErr = nil
	require.NoError(t, f.life.RequestResume(context.Background()))
	assert.False(t, f.sctx.Paused())
}
