package components

import (
	"github.com/alexisbeaulieu97/converge/internal/model"
)

// ResourceEntry represents a single resource for rendering.
type ResourceEntry struct {
	ID     string
	Label  string
	Result model.ResourceResult
}

// ResourceList renders resources in execution order with their current status.
type ResourceList struct {
	entries []ResourceEntry
}

// NewResourceList constructs a resource list component. Entries without a label
// are labelled with their id.
func NewResourceList(order []string, resources map[string]model.ResourceResult, labels map[string]string) ResourceList {
	entries := make([]ResourceEntry, 0, len(order))
	for _, id := range order {
		label := labels[id]
		if label == "" {
			label = id
		}
		entries = append(entries, ResourceEntry{ID: id, Label: label, Result: resources[id]})
	}
	return ResourceList{entries: entries}
}

// Entries returns the ordered resource entries.
func (l ResourceList) Entries() []ResourceEntry {
	clone := make([]ResourceEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
