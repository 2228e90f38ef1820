// Package orchestration is a keyed workflow-instance engine: one durable,
// resumable instance per user id, advanced by named signals. An instance
// persists its step cursor, so a workflow survives across inbound events
// and process restarts (with a persistent Store).
package orchestration

import "time"

// RuntimeStatus is the lifecycle state of a workflow instance.
type RuntimeStatus string

const (
	// StatusNotStarted means no instance exists for the key.
	StatusNotStarted RuntimeStatus = "NotStarted"
	// StatusPending means the instance is scheduled but not yet executing.
	// This engine starts instances synchronously and never parks them
	// here; the status exists so callers handle engines that do.
	StatusPending RuntimeStatus = "Pending"
	// StatusRunning means the instance is waiting on its current step's event.
	StatusRunning RuntimeStatus = "Running"
	// StatusCompleted means the instance finished its last step.
	StatusCompleted RuntimeStatus = "Completed"
	// StatusTerminated means the instance was ended explicitly.
	StatusTerminated RuntimeStatus = "Terminated"
	// StatusFailed means a step handler returned an error.
	StatusFailed RuntimeStatus = "Failed"
)

// Active reports whether the instance can still receive signals.
func (s RuntimeStatus) Active() bool {
	return s == StatusRunning || s == StatusPending
}

// Instance is one workflow execution, keyed by user id. Only one instance
// per user exists at a time; starting a new workflow after a previous one
// finished replaces the finished instance.
type Instance struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Workflow      string        `json:"workflow"`
	RuntimeStatus RuntimeStatus `json:"runtimeStatus"`
	// Step is the persisted cursor: the name of the step whose event the
	// instance is currently waiting on. Opaque to callers.
	Step      string    `json:"step"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
