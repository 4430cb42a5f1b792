package entity

import "time"

// Phase is a stage of an extraction session.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseExtracting Phase = "extracting"
	PhaseScoring    Phase = "scoring"
	PhaseValidating Phase = "validating"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// IsTerminal reports whether the phase ends a session.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// EventStatus marks where within a phase an event was emitted.
type EventStatus string

const (
	EventStarted  EventStatus = "started"
	EventProgress EventStatus = "progress"
	EventDone     EventStatus = "done"
)

// ProgressEvent is one step of an extraction session.
type ProgressEvent struct {
	SessionID       string      `json:"session_id"`
	Sequence        int         `json:"sequence"`
	Phase           Phase       `json:"phase"`
	Status          EventStatus `json:"status"`
	Message         string      `json:"message,omitempty"`
	Method          string      `json:"method,omitempty"`
	ProgressPercent int         `json:"progress_percent"`
	Suggestions     []string    `json:"suggestions,omitempty"`
	Payload         any         `json:"payload,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// ProgressSession describes a live or recently finished extraction session.
type ProgressSession struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Terminal   bool      `json:"terminal"`
	LastPhase  Phase     `json:"last_phase,omitempty"`
	EventCount int       `json:"event_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
