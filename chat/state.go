package chat

import "fmt"

// State of a send.
type State int

const (
	// StateIdle means nothing is in flight for the send.
	StateIdle State = iota
	// StateUserRecorded means the user message was written.
	StateUserRecorded
	// StateAwaitingModel means the backend is generating.
	StateAwaitingModel
	// StateFinalized means the reply holds its final text, or the apology.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateUserRecorded:
		return "UserRecorded"
	case StateAwaitingModel:
		return "AwaitingModel"
	case StateFinalized:
		return "Finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition between two states of a send.
type Transition struct {
	ChatKey string
	From    State
	To      State
	// Err is set on the AwaitingModel -> Finalized edge when the generation failed.
	Err error
}

// Status is the transient, UI facing state of a chat.
type Status struct {
	// Loading is true while at least one send is awaiting its model.
	Loading bool `json:"loading"`
	// Status last reported by the backend.
	Status string `json:"status"`
	// Progress last reported by the backend, in [0, 100].
	Progress int `json:"progress"`
}
