package models

// ChemicalAddition is one scheduled (or already performed) dosing action on a
// drum, as reported by the MES.
type ChemicalAddition struct {
	ID            int64   `json:"id"`
	ProcessID     int64   `json:"process_id"`
	ProcessCode   string  `json:"process_code"`
	MaterialID    int64   `json:"material_id"`
	MaterialName  string  `json:"material_name"`
	TargetPercent float64 `json:"target_percent"`
	ActualWeight  float64 `json:"actual_weight"`
	// OperateTime is the nominal operate duration in minutes.
	OperateTime int `json:"operate_time"`
	// ConfirmTime is the scheduled confirmation timestamp in the MES's
	// "2006-01-02 15:04:05" local-naive form. Immutable once set by the server.
	ConfirmTime string `json:"confirm_time"`
	// VideoRef is set exactly once, after a successful proof-video upload.
	VideoRef   string `json:"video_ref,omitempty"`
	Completed  bool   `json:"completed"`
	AutoPipeNo int    `json:"auto_pipe_no,omitempty"`
}

// ConfirmGroup is the set of additions sharing one scheduled confirmation
// timestamp. Derived, never persisted; recomputed whenever the addition list
// changes.
type ConfirmGroup struct {
	ConfirmTime string             `json:"confirm_time"`
	Additions   []ChemicalAddition `json:"additions"`
}

// HasVideo reports whether any addition in the group already carries a proof
// video reference, which marks the group as satisfied.
func (g ConfirmGroup) HasVideo() bool {
	for _, a := range g.Additions {
		if a.VideoRef != "" {
			return true
		}
	}
	return false
}

// ActionWindow is the interval during which a group's dose must be confirmed.
type ActionWindow struct {
	// AlertAtMs is the scheduled confirmation time in epoch milliseconds.
	AlertAtMs int64 `json:"alert_at_ms"`
	// DeadlineMs is the last instant the action counts as on time.
	DeadlineMs int64 `json:"deadline_ms"`
}
