package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/converge/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	typeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	summaryStyle = lipgloss.NewStyle().MarginTop(1)
)

type statusGlyph struct {
	symbol string
	style  lipgloss.Style
}

var pendingGlyph = statusGlyph{"…", lipgloss.NewStyle().Foreground(lipgloss.Color("240"))}

// statusGlyphs renders each terminal and in-flight resource status.
var statusGlyphs = map[model.ResourceStatus]statusGlyph{
	model.StatusConverged:     {"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("42"))},
	model.StatusUpToDate:      {"=", lipgloss.NewStyle().Foreground(lipgloss.Color("244"))},
	model.StatusRunning:       {"⏳", lipgloss.NewStyle().Foreground(lipgloss.Color("33"))},
	model.StatusFailed:        {"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)},
	model.StatusWouldConverge: {"↻", lipgloss.NewStyle().Foreground(lipgloss.Color("214"))},
}
