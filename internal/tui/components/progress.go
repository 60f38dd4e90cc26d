package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const defaultBarWidth = 30

// Progress renders how many resources reached a terminal status.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component for total resources.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = defaultBarWidth
	return Progress{bar: bar, total: total}
}

// Ratio returns the completed fraction clamped to [0, 1].
func (p Progress) Ratio(completed int) float64 {
	if p.total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1.0, float64(completed)/float64(p.total)))
}

// View renders the progress bar for the provided completion count.
func (p Progress) View(completed int) string {
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", completed, p.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(p.Ratio(completed)))
}
