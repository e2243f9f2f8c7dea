package orchestrator

import "time"

// Stage names a step of the submit pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageSubmit   Stage = "submit"
)

// Event describes the outcome of one pipeline stage.
type Event struct {
	Stage    Stage
	JobName  string
	Target   string
	Err      error
	Duration time.Duration
}

// Observer receives an Event after every stage that ran. Implementations must
// be safe for concurrent use; metrics collectors are the usual consumer.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts plain functions to the Observer interface.
type ObserverFunc func(Event)

// Observe executes the wrapped function when non-nil.
func (fn ObserverFunc) Observe(e Event) {
	if fn == nil {
		return
	}
	fn(e)
}

type observers []Observer

func (o observers) Observe(e Event) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(e)
		}
	}
}
