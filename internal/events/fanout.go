package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"drumtrack-service/internal/db"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/notify"
	"drumtrack-service/internal/ws"
)

// Frame is the payload pushed to terminals and the plant bus.
type Frame struct {
	Type          string               `json:"type"`
	DrumID        string               `json:"drum_id"`
	ProcessID     int64                `json:"process_id,omitempty"`
	Group         *models.ConfirmGroup `json:"group,omitempty"`
	Window        *models.ActionWindow `json:"window,omitempty"`
	BudgetSeconds int                  `json:"budget_seconds,omitempty"`
	VideoRef      string               `json:"video_ref,omitempty"`
	Message       string               `json:"message,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Fanout delivers scheduler and lifecycle events to every presentation
// channel: terminal WebSockets, the plant bus, supervisor escalation, and the
// audit store. It satisfies the scheduler and lifecycle sink interfaces.
// Delivery runs on a worker fed by a buffered queue, so the callers only
// enqueue and never wait on the network or the database.
type Fanout struct {
	drumID string
	hub    *ws.Hub
	bus    *Publisher
	tg     *notify.Telegram
	store  *db.DB
	logger *logging.Logger

	tasks chan func()
}

// NewFanout wires the delivery channels. bus may be nil and tg unconfigured;
// both degrade to the remaining channels.
func NewFanout(drumID string, hub *ws.Hub, bus *Publisher, tg *notify.Telegram, store *db.DB, logger *logging.Logger) *Fanout {
	return &Fanout{
		drumID: drumID,
		hub:    hub,
		bus:    bus,
		tg:     tg,
		store:  store,
		logger: logger,
		tasks:  make(chan func(), 64),
	}
}

// Start launches the delivery worker until ctx is cancelled.
func (f *Fanout) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				f.logger.Infof("Event delivery worker stopped")
				return
			case task := <-f.tasks:
				task()
			}
		}
	}()
}

// enqueue hands one delivery unit to the worker. The alert tick must never
// wait on a broker or a socket, so a full queue drops the task instead of
// blocking the caller.
func (f *Fanout) enqueue(task func()) {
	select {
	case f.tasks <- task:
	default:
		f.logger.Errorf("Event queue full, dropping delivery task")
	}
}

func (f *Fanout) deliver(frame Frame) {
	f.hub.Broadcast(f.drumID, frame)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f.bus.Publish(ctx, f.drumID, frame)
}

func (f *Fanout) record(ev models.AlertEvent) {
	if f.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.store.CreateAlertEvent(ctx, ev); err != nil {
		f.logger.Errorf("Failed to persist alert event: %v", err)
	}
}

func (f *Fanout) escalate(text string) {
	if f.tg == nil || !f.tg.Configured() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := f.tg.Send(ctx, text); err != nil {
			f.logger.Errorf("Supervisor escalation failed: %v", err)
		}
	}()
}

func groupProcessID(g models.ConfirmGroup) int64 {
	if len(g.Additions) > 0 {
		return g.Additions[0].ProcessID
	}
	return 0
}

// AlertRaised surfaces a due confirm group to the operator.
func (f *Fanout) AlertRaised(group models.ConfirmGroup, window models.ActionWindow, budgetSeconds int) {
	now := time.Now()
	f.enqueue(func() {
		f.deliver(Frame{
			Type:          models.EventAlertRaised,
			DrumID:        f.drumID,
			ProcessID:     groupProcessID(group),
			Group:         &group,
			Window:        &window,
			BudgetSeconds: budgetSeconds,
			Timestamp:     now,
		})
		f.record(models.AlertEvent{
			ID:            uuid.New(),
			DrumID:        f.drumID,
			ProcessID:     groupProcessID(group),
			ConfirmTime:   group.ConfirmTime,
			Kind:          models.EventAlertRaised,
			DeadlineMs:    window.DeadlineMs,
			BudgetSeconds: budgetSeconds,
			CreatedAt:     now,
		})
		f.escalate(fmt.Sprintf("*Dose due* on drum %s\nGroup: %s\nWindow: %ds", f.drumID, group.ConfirmTime, budgetSeconds))
	})
}

// AlertExpired reports a window that closed unacknowledged.
func (f *Fanout) AlertExpired(group models.ConfirmGroup) {
	now := time.Now()
	f.enqueue(func() {
		f.deliver(Frame{
			Type:      models.EventAlertExpired,
			DrumID:    f.drumID,
			ProcessID: groupProcessID(group),
			Group:     &group,
			Timestamp: now,
		})
		f.record(models.AlertEvent{
			ID:          uuid.New(),
			DrumID:      f.drumID,
			ProcessID:   groupProcessID(group),
			ConfirmTime: group.ConfirmTime,
			Kind:        models.EventAlertExpired,
			CreatedAt:   now,
		})
		f.escalate(fmt.Sprintf("*Missed dose window* on drum %s\nGroup: %s", f.drumID, group.ConfirmTime))
	})
}

// AlertResolved reports a group satisfied by an uploaded proof video.
func (f *Fanout) AlertResolved(group models.ConfirmGroup, videoRef string) {
	now := time.Now()
	f.enqueue(func() {
		f.deliver(Frame{
			Type:      models.EventAlertResolved,
			DrumID:    f.drumID,
			ProcessID: groupProcessID(group),
			Group:     &group,
			VideoRef:  videoRef,
			Timestamp: now,
		})
		f.record(models.AlertEvent{
			ID:          uuid.New(),
			DrumID:      f.drumID,
			ProcessID:   groupProcessID(group),
			ConfirmTime: group.ConfirmTime,
			Kind:        models.EventAlertResolved,
			CreatedAt:   now,
		})
	})
}

// ProcessCompleted announces the terminal completion transition.
func (f *Fanout) ProcessCompleted(drumID string, processID int64) {
	now := time.Now()
	f.enqueue(func() {
		f.deliver(Frame{
			Type:      models.EventProcessCompleted,
			DrumID:    drumID,
			ProcessID: processID,
			Timestamp: now,
		})
		f.record(models.AlertEvent{
			ID:        uuid.New(),
			DrumID:    drumID,
			ProcessID: processID,
			Kind:      models.EventProcessCompleted,
			CreatedAt: now,
		})
	})
}

// ProcessReset announces an externally initiated cancellation.
func (f *Fanout) ProcessReset(drumID string, processID int64) {
	now := time.Now()
	f.enqueue(func() {
		f.deliver(Frame{
			Type:      models.EventProcessReset,
			DrumID:    drumID,
			ProcessID: processID,
			Timestamp: now,
		})
		f.record(models.AlertEvent{
			ID:        uuid.New(),
			DrumID:    drumID,
			ProcessID: processID,
			Kind:      models.EventProcessReset,
			CreatedAt: now,
		})
	})
}

// PollFailed pushes a transient notification; schedule state is untouched.
func (f *Fanout) PollFailed(drumID string, err error) {
	now := time.Now()
	f.enqueue(func() {
		f.hub.Broadcast(drumID, Frame{
			Type:      "poll_failed",
			DrumID:    drumID,
			Message:   err.Error(),
			Timestamp: now,
		})
	})
}
