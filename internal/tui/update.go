package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/converge/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case ResourceStartMsg:
		m.ensureResource(msg.ID, "", "")
		res := m.resources[msg.ID]
		res.Status = model.StatusRunning
		m.resources[msg.ID] = res
		return m, nil
	case ResourceCompleteMsg:
		id := msg.Result.ResourceID
		if id == "" {
			return m, nil
		}
		m.ensureResource(id, msg.Result.Recipe, msg.Result.Type)
		previouslyCompleted := m.resources[id].Status.IsTerminal()
		m.resources[id] = msg.Result
		if !previouslyCompleted {
			m.completed++
		}
		return m, nil
	case ValidationMsg:
		m.validations = append(m.validations, ValidationStatus{Passed: msg.Passed, Message: msg.Message})
		return m, nil
	case RunFinishedMsg:
		m.runErr = msg.Err
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
