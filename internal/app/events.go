package app

import "time"

// EventType names a batch lifecycle event.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventInputDone    EventType = "input_done"
	EventInputSkipped EventType = "input_skipped"
	EventRunFinished  EventType = "run_finished"
)

// Event describes progress of a batch.
type Event struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id"`
	Input     string        `json:"input,omitempty"`
	Output    string        `json:"output,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Total     int           `json:"total,omitempty"`
	Succeeded int           `json:"succeeded,omitempty"`
	Skipped   int           `json:"skipped,omitempty"`
	Time      time.Time     `json:"time"`
}

// Observer receives batch events. OnEvent is called concurrently from workers.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}
