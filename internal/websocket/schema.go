package websocket

import "github.com/stemsi/olympiad-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick  Event = "tick"
	EventPong  Event = "pong"
	EventError Event = "error"
)

// TickResponse is pushed every second with the participant's clock.
// RemainingSeconds is -1 when the window is unbounded.
type TickResponse struct {
	Event            Event           `json:"event"`
	State            model.ExamState `json:"state"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// Terminal reports whether no further state change can happen for the
// participant, after which the stream is closed.
func Terminal(state model.ExamState) bool {
	return state == model.ExamStateTimeElapsed || state == model.ExamStateClosed
}
