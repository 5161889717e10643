package models

// ProcessDescriptor identifies the batch process currently running on a drum.
type ProcessDescriptor struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	DrumID string `json:"drum_id"`
	// PauseTime and ResumeTime are local-naive timestamps set by the MES.
	// Empty string means the event never happened.
	PauseTime  string `json:"pause_time,omitempty"`
	ResumeTime string `json:"resume_time,omitempty"`
}

// Paused reports whether the process is currently paused: a pause timestamp
// exists with no later resume timestamp. Lexicographic comparison is valid
// because the timestamp format is fixed-width and zero-padded.
func (p ProcessDescriptor) Paused() bool {
	if p.PauseTime == "" {
		return false
	}
	return p.ResumeTime == "" || p.ResumeTime < p.PauseTime
}

// RunningConfig carries server-supplied tuning values.
type RunningConfig struct {
	// InspectionTime is the poll period in seconds. May change at runtime;
	// the poll timer is recreated when it does.
	InspectionTime int `json:"inspection_time"`
	// MaxTimeRecord is the default recording ceiling in seconds, overridden
	// downward by the remaining action window.
	MaxTimeRecord int `json:"max_time_record"`
}

// RunningState is one poll result from the MES for a drum.
type RunningState struct {
	Process    *ProcessDescriptor `json:"process,omitempty"`
	ServerTime string             `json:"server_time"`
	Additions  []ChemicalAddition `json:"additions"`
	Config     RunningConfig      `json:"config"`
}
