package model

import (
	"time"
)

// ResourceStatus is the externally reported outcome of one resource.
type ResourceStatus string

const (
	// StatusPending indicates a resource has not been reached yet.
	StatusPending ResourceStatus = "pending"
	// StatusRunning indicates a resource is being evaluated or applied.
	StatusRunning ResourceStatus = "running"
	// StatusUpToDate means no change was needed, or a guard skipped the resource.
	StatusUpToDate ResourceStatus = "up_to_date"
	// StatusConverged means the action ran and brought the host in line.
	StatusConverged ResourceStatus = "converged"
	// StatusFailed marks a hard failure while applying the action.
	StatusFailed ResourceStatus = "failed"
	// StatusWouldConverge is the dry-run counterpart of StatusConverged.
	StatusWouldConverge ResourceStatus = "would_converge"
)

// IsTerminal reports whether the status ends the resource's lifecycle.
func (s ResourceStatus) IsTerminal() bool {
	switch s {
	case StatusUpToDate, StatusConverged, StatusFailed, StatusWouldConverge:
		return true
	default:
		return false
	}
}

// ResourceResult captures the outcome of converging a single resource.
type ResourceResult struct {
	ResourceID   string
	Recipe       string
	Type         string
	Status       ResourceStatus
	Message      string
	Error        error
	Artifact     string
	GuardSkipped bool
	Duration     time.Duration
	Timestamp    time.Time
}

// Changed reports whether the resource mutated (or would mutate) the host.
func (r ResourceResult) Changed() bool {
	return r.Status == StatusConverged || r.Status == StatusWouldConverge
}

// RunSummary aggregates the results of a whole run.
type RunSummary struct {
	Total         int
	UpToDate      int
	Converged     int
	Failed        int
	WouldConverge int
	Duration      time.Duration
	Results       []ResourceResult
}

// Add records a terminal result and updates the counters.
func (s *RunSummary) Add(res ResourceResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case StatusUpToDate:
		s.UpToDate++
	case StatusConverged:
		s.Converged++
	case StatusFailed:
		s.Failed++
	case StatusWouldConverge:
		s.WouldConverge++
	}
}

// Succeeded reports whether no resource failed.
func (s *RunSummary) Succeeded() bool {
	return s != nil && s.Failed == 0
}

// Pending returns how many declared resources never reached a terminal state.
func (s *RunSummary) Pending() int {
	if s == nil {
		return 0
	}
	return s.Total - len(s.Results)
}
