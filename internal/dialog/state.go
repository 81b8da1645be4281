package dialog

import "time"

// Phase is where a conversation is in its lifecycle.
type Phase string

const (
	// PhaseAsking waits for the answer to the current step.
	PhaseAsking Phase = "asking"
	// PhaseConfirming waits for the answer to "are you sure you want to end?".
	PhaseConfirming Phase = "confirming"
	// PhaseDone means the farewell was sent.
	PhaseDone Phase = "done"
)

// State is the persisted position of one conversation.
// The zero value is a conversation that has not started.
type State struct {
	Topic   string `json:"topic"`
	Step    int    `json:"step"`
	Phase   Phase  `json:"phase"`
	Retries int    `json:"retries"`

	// Resume point saved when the end confirmation started.
	ResumeTopic string `json:"resume_topic,omitempty"`
	ResumeStep  int    `json:"resume_step,omitempty"`

	Profile   Profile   `json:"profile"`
	Turns     int       `json:"turns"`
	EndReason string    `json:"end_reason,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Started reports whether the conversation has been positioned on a topic.
func (s *State) Started() bool {
	return s.Topic != ""
}

// Done reports whether the farewell was sent.
func (s *State) Done() bool {
	return s.Phase == PhaseDone
}

// Expire ends a conversation that timed out while running. UpdatedAt keeps the
// time of the last turn.
func (s *State) Expire() {
	s.Phase = PhaseDone
	s.EndReason = EndExpired
	s.Retries = 0
	s.ResumeTopic, s.ResumeStep = "", 0
}
