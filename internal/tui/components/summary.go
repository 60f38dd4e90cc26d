package components

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/model"
)

// ValidationStatus represents a validation outcome for summary rendering.
type ValidationStatus struct {
	Passed  bool
	Message string
}

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Counts      map[model.ResourceStatus]int
	Total       int
	Completed   int
	Finished    bool
	Cancelled   bool
	Err         error
	Validations []ValidationStatus
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

var countOrder = []struct {
	status model.ResourceStatus
	label  string
}{
	{model.StatusConverged, "converged"},
	{model.StatusUpToDate, "up to date"},
	{model.StatusWouldConverge, "would converge"},
	{model.StatusFailed, "failed"},
	{model.StatusPending, "pending"},
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Resources: %d/%d completed", s.data.Completed, s.data.Total))
	}

	var counts []string
	for _, c := range countOrder {
		if n := s.data.Counts[c.status]; n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, c.label))
		}
	}
	if len(counts) > 0 && s.data.Finished {
		lines = append(lines, strings.Join(counts, ", "))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case s.data.Err != nil:
		lines = append(lines, fmt.Sprintf("Run failed: %v", s.data.Err))
	case s.data.Finished && s.data.Total > 0:
		if s.data.Completed == s.data.Total {
			lines = append(lines, "Run finished successfully")
		} else {
			lines = append(lines, "Run finished with pending resources")
		}
	}

	if len(s.data.Validations) > 0 {
		lines = append(lines, "Validations:")
		for _, v := range s.data.Validations {
			status := "✗"
			if v.Passed {
				status = "✓"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", status, v.Message))
		}
	}

	return strings.Join(lines, "\n")
}
