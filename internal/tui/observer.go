package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
)

// Sender is the subset of *tea.Program used to forward engine events.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramObserver forwards engine callbacks to a running program.
type ProgramObserver struct {
	Program Sender
}

func (o ProgramObserver) ResourceStarted(_ string, res *config.Resource) {
	o.Program.Send(ResourceStartMsg{ID: res.ID, Time: time.Now()})
}

func (o ProgramObserver) ResourceFinished(result model.ResourceResult) {
	o.Program.Send(ResourceCompleteMsg{Result: result})
}
