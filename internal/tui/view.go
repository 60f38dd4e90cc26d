package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	heading := "converge"
	if m.dryRun {
		heading += " (dry run)"
	}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("%s • %s", heading, m.title)))

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewResourceList(m.order, m.resources, m.labels).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Resources"))
		sections = append(sections, renderResourceEntries(entries))
	}

	validations := make([]components.ValidationStatus, 0, len(m.validations))
	for _, v := range m.validations {
		validations = append(validations, components.ValidationStatus{Passed: v.Passed, Message: v.Message})
	}
	summary := components.NewSummary(components.SummaryData{
		Counts:      m.counts(),
		Total:       m.total,
		Completed:   m.completed,
		Finished:    m.finished,
		Cancelled:   m.cancelled,
		Err:         m.runErr,
		Validations: validations,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) counts() map[model.ResourceStatus]int {
	counts := make(map[model.ResourceStatus]int)
	for _, id := range m.order {
		counts[m.resources[id].Status]++
	}
	return counts
}

func renderResourceEntries(entries []components.ResourceEntry) string {
	var lines []string
	for _, entry := range entries {
		res := entry.Result
		line := fmt.Sprintf(" %s %s", StatusIcon(res.Status), entry.Label)
		if res.Type != "" {
			line += " " + typeStyle.Render("["+res.Type+"]")
		}
		if strings.TrimSpace(res.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, res.Message)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// StatusIcon returns the glyph representing a resource status.
func StatusIcon(status model.ResourceStatus) string {
	glyph, ok := statusGlyphs[status]
	if !ok {
		glyph = pendingGlyph
	}
	return glyph.style.Render(glyph.symbol)
}
