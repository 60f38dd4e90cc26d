package model

import "time"

// VerificationStatus describes live state relative to the declaration.
type VerificationStatus string

const (
	// StatusSatisfied means the resource already matches its declaration.
	StatusSatisfied VerificationStatus = "satisfied"
	// StatusMissing means the resource does not exist yet.
	StatusMissing VerificationStatus = "missing"
	// StatusDrifted means the resource exists but differs.
	StatusDrifted VerificationStatus = "drifted"
	// StatusBlocked means the resource cannot be assessed (guard, missing input).
	StatusBlocked VerificationStatus = "blocked"
	// StatusUnknown means state could not be determined.
	StatusUnknown VerificationStatus = "unknown"
)

// IsValid reports whether the status is one of the known values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusBlocked, StatusUnknown:
		return true
	default:
		return false
	}
}

// VerificationResult is the read-only assessment of a single resource.
type VerificationResult struct {
	ResourceID string
	Recipe     string
	Type       string
	Status     VerificationStatus
	Message    string
	Details    string
	Error      error
	Duration   time.Duration
	Timestamp  time.Time
}

// VerificationSummary aggregates verification results.
type VerificationSummary struct {
	TotalResources int
	Satisfied      int
	Missing        int
	Drifted        int
	Blocked        int
	Unknown        int
	Duration       time.Duration
	Results        []*VerificationResult
}

// Add records a result and bumps the matching counter.
func (s *VerificationSummary) Add(res *VerificationResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case StatusSatisfied:
		s.Satisfied++
	case StatusMissing:
		s.Missing++
	case StatusDrifted:
		s.Drifted++
	case StatusBlocked:
		s.Blocked++
	case StatusUnknown:
		s.Unknown++
	}
}

// AllSatisfied reports whether nothing needs to change.
func (s *VerificationSummary) AllSatisfied() bool {
	return s.TotalResources == s.Satisfied
}

// NeedsApply reports whether an apply would have anything to do.
func (s *VerificationSummary) NeedsApply() bool {
	return s.Missing > 0 || s.Drifted > 0 || s.Blocked > 0 || s.Unknown > 0
}

// ExitCode maps the summary onto the verify command's exit code contract.
func (s *VerificationSummary) ExitCode() int {
	if s.NeedsApply() {
		return 1
	}
	return 0
}
