package alarm

import (
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/ws"
)

// Terminal drives the alarm sounder on the operator terminal over the
// WebSocket channel. Fire and forget: a terminal that misses the frame still
// sees the alert in the pushed state.
type Terminal struct {
	hub    *ws.Hub
	drumID string
	logger *logging.Logger
}

// NewTerminal constructs the alarm collaborator for one drum.
func NewTerminal(hub *ws.Hub, drumID string, logger *logging.Logger) *Terminal {
	return &Terminal{hub: hub, drumID: drumID, logger: logger}
}

func (t *Terminal) Play() {
	t.hub.Broadcast(t.drumID, map[string]string{"type": "alarm", "action": "play"})
	t.logger.Debugf("Alarm play pushed to drum %s", t.drumID)
}

func (t *Terminal) Stop() {
	t.hub.Broadcast(t.drumID, map[string]string{"type": "alarm", "action": "stop"})
	t.logger.Debugf("Alarm stop pushed to drum %s", t.drumID)
}

// Noop silences the alarm collaborator. Used in tests.
type Noop struct{}

func (Noop) Play() {}
func (Noop) Stop() {}
