package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/model"
)

// ResourceStartMsg indicates a resource has started converging.
type ResourceStartMsg struct {
	ID   string
	Time time.Time
}

// ResourceCompleteMsg reports that a resource reached a terminal status.
type ResourceCompleteMsg struct {
	Result model.ResourceResult
}

// ValidationMsg carries the outcome of a validation.
type ValidationMsg struct {
	Passed  bool
	Message string
}

// RunFinishedMsg ends the run, successful or not.
type RunFinishedMsg struct {
	Err error
}

type tickMsg struct{}

// Model contains the Bubbletea state for the apply progress view.
type Model struct {
	title          string
	resources      map[string]model.ResourceResult
	labels         map[string]string
	order          []string
	validations    []ValidationStatus
	total          int
	completed      int
	dryRun         bool
	finished       bool
	cancelled      bool
	runErr         error
	nonInteractive bool
}

// ValidationStatus is a validation line in the summary.
type ValidationStatus struct {
	Passed  bool
	Message string
}

// NewModel constructs a model listing every enabled resource of plan as pending.
func NewModel(plan *engine.Plan, dryRun, nonInteractive bool) Model {
	m := Model{
		title:          "Execution",
		resources:      make(map[string]model.ResourceResult),
		labels:         make(map[string]string),
		dryRun:         dryRun,
		nonInteractive: nonInteractive,
	}

	if plan == nil {
		return m
	}

	names := make([]string, 0, len(plan.Recipes))
	for _, recipe := range plan.Recipes {
		names = append(names, recipe.Name)
	}
	if len(names) > 0 {
		m.title = strings.Join(names, ", ")
	}

	for _, step := range plan.Steps() {
		m.ensureResource(step.Resource.ID, step.Recipe.Name, step.Resource.Type)
		m.labels[step.Resource.ID] = step.Resource.DisplayName()
	}
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalResources returns the number of resources tracked by the model.
func (m Model) TotalResources() int {
	return m.total
}

// CompletedResources returns the number of resources in a terminal status.
func (m Model) CompletedResources() int {
	return m.completed
}

// IsFinished reports whether the run has ended.
func (m Model) IsFinished() bool {
	return m.finished
}

func (m *Model) ensureResource(id, recipe, kind string) {
	if id == "" {
		return
	}
	if _, exists := m.resources[id]; !exists {
		m.resources[id] = model.ResourceResult{ResourceID: id, Recipe: recipe, Type: kind, Status: model.StatusPending}
		m.order = append(m.order, id)
		m.total++
	}
}
