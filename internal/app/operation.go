package app

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation for the log. Its ID tags every log
// line written while it runs.
type Operation struct {
	ID      string
	Name    string
	Started time.Time
	Status  string
	Err     error
}

// NewOperation creates an operation that has not failed yet.
func NewOperation(name string, started time.Time) *Operation {
	return &Operation{
		ID:      started.UTC().Format("20060102T150405Z"),
		Name:    name,
		Started: started,
		Status:  StatusSuccess,
	}
}

// Fail records err; a nil err is ignored.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = StatusError
	op.Err = err
}

// Failed returns true if Fail was called with a non-nil error.
func (op *Operation) Failed() bool {
	return op.Status == StatusError
}
