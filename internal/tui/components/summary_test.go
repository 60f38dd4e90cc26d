package components

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/model"
)

func TestSummaryView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     SummaryData
		contains []string
		empty    bool
	}{
		{name: "empty", data: SummaryData{}, empty: true},
		{
			name:     "in progress",
			data:     SummaryData{Total: 10, Completed: 5},
			contains: []string{"Resources: 5/10 completed"},
		},
		{
			name: "finished with counts",
			data: SummaryData{
				Total: 3, Completed: 3, Finished: true,
				Counts: map[model.ResourceStatus]int{model.StatusConverged: 2, model.StatusUpToDate: 1},
			},
			contains: []string{"2 converged, 1 up to date", "Run finished successfully"},
		},
		{
			name: "failure leaves pending",
			data: SummaryData{
				Total: 3, Completed: 1, Finished: true, Err: errors.New("boom"),
				Counts: map[model.ResourceStatus]int{model.StatusFailed: 1, model.StatusPending: 2},
			},
			contains: []string{"1 failed, 2 pending", "Run failed: boom"},
		},
		{
			name:     "cancelled",
			data:     SummaryData{Total: 2, Completed: 1, Finished: true, Cancelled: true},
			contains: []string{"Run cancelled"},
		},
		{
			name: "validations",
			data: SummaryData{Validations: []ValidationStatus{
				{Passed: true, Message: "command_exists java"},
				{Passed: false, Message: "file_exists /opt/h2/h2.jar"},
			}},
			contains: []string{"Validations:", "✓ command_exists java", "✗ file_exists /opt/h2/h2.jar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			view := NewSummary(tt.data).View()
			if tt.empty {
				require.Empty(t, view)
				return
			}
			for _, want := range tt.contains {
				require.Contains(t, view, want)
			}
		})
	}
}

func TestResourceListKeepsOrder(t *testing.T) {
	t.Parallel()

	resources := map[string]model.ResourceResult{
		"b": {ResourceID: "b", Status: model.StatusConverged},
		"a": {ResourceID: "a", Status: model.StatusPending},
	}
	entries := NewResourceList([]string{"b", "a"}, resources, map[string]string{"a": "Install H2"}).Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "b", entries[0].ID)
	require.Equal(t, "b", entries[0].Label)
	require.Equal(t, "Install H2", entries[1].Label)
	require.Equal(t, model.StatusPending, entries[1].Result.Status)
}
