package coordinator

import "github.com/coursegrade/backend/grader"

const (
	EventTypeStarted = "started"
	EventTypeUpdate  = "update"
	EventTypeError   = "error"
	EventTypeResults = "results"
)

// Event is one progress notification for a student's grading run.
// Per run, subscribers observe exactly one Started, zero or more
// Update, then exactly one terminal Results or Error.
type Event interface {
	Type() string
}

type Started struct{}

func (Started) Type() string { return EventTypeStarted }

type Update struct {
	Message string
}

func (Update) Type() string { return EventTypeUpdate }

// Error is the terminal event of an abandoned run. No Submission was
// persisted; the student may resubmit immediately.
type Error struct {
	Message string
	Details string
}

func (Error) Type() string { return EventTypeError }

// Results is the terminal event of a completed run.
type Results struct {
	Submission *grader.Submission
}

func (Results) Type() string { return EventTypeResults }

func isTerminal(ev Event) bool {
	t := ev.Type()
	return t == EventTypeError || t == EventTypeResults
}
