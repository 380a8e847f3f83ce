package types

// Status is the processing state of a Recording.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Known reports whether s is one of the defined statuses. Records arriving
// from the store may carry anything; unknown values are treated as terminal
// by the loop guard.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the processor considers s final for a single
// invocation. Re-entry from a terminal state only happens via an external
// re-queue, which this service never performs.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the processor is allowed to move a record
// from s to next within one invocation:
//
//	QUEUED     -> PROCESSING
//	PROCESSING -> COMPLETED | FAILED
//
// An empty current status is treated as QUEUED; event payloads from freshly
// created documents sometimes omit the field.
func (s Status) CanTransition(next Status) bool {
	if s == "" {
		s = StatusQueued
	}
	switch s {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}
