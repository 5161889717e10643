package models

import "time"

// GroupPhase is the lifecycle phase of one confirm group.
type GroupPhase string

const (
	PhasePending  GroupPhase = "pending"
	PhaseAlerted  GroupPhase = "alerted"
	PhaseResolved GroupPhase = "resolved"
	PhaseExpired  GroupPhase = "expired"
)

// Lifecycle event kinds published to operator terminals and the plant bus.
const (
	EventAlertRaised      = "alert_raised"
	EventAlertExpired     = "alert_expired"
	EventAlertResolved    = "alert_resolved"
	EventProcessCompleted = "process_completed"
	EventProcessReset     = "process_reset"
)

// AlertEvent is one persisted scheduler decision for audit and the operator
// history view.
type AlertEvent struct {
	ID          [16]byte  `json:"id"`
	DrumID      string    `json:"drum_id"`
	ProcessID   int64     `json:"process_id"`
	ConfirmTime string    `json:"confirm_time"`
	Kind        string    `json:"kind"`
	DeadlineMs  int64     `json:"deadline_ms"`
	// BudgetSeconds is the recording ceiling computed when the alert fired.
	BudgetSeconds int       `json:"budget_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// VideoUpload tracks one proof-video upload attempt for a confirm group.
type VideoUpload struct {
	ID          [16]byte  `json:"id"`
	DrumID      string    `json:"drum_id"`
	ConfirmTime string    `json:"confirm_time"`
	LocalPath   string    `json:"local_path"`
	VideoRef    string    `json:"video_ref,omitempty"`
	Status      string    `json:"status"` // pending, uploaded, failed
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
