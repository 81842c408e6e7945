package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/greenops"
)

// View implements tea.Model.
func (m ImpactsModel) View() string {
	switch m.state {
	case ViewStateQuitting:
		return ""
	case ViewStateDetail:
		return m.renderDetailView()
	default:
		return m.renderListView()
	}
}

func (m ImpactsModel) renderListView() string {
	sections := []string{}
	if m.title != "" {
		sections = append(sections, HeaderStyle.Render(m.title))
	}
	if len(m.rows) == 0 {
		sections = append(sections, SubtleStyle.Render("No impact results."))
	} else {
		sections = append(sections, m.table.View())
	}
	status := fmt.Sprintf("Sort: %s | Press 's' to cycle, enter for detail, 'q' to quit", m.sortBy)
	sections = append(sections, SubtleStyle.Render(status))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ImpactsModel) renderDetailView() string {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return "Selected row out of range"
	}
	row := m.rows[m.selected]

	var content strings.Builder
	content.WriteString(HeaderStyle.Render("IMPACT DETAIL"))
	content.WriteString("\n\n")
	writeField(&content, "Category: ", row.Name)
	writeField(&content, "Amount:   ", greenops.FormatAmount(row.Amount))
	writeField(&content, "Units:    ", row.Units)
	writeField(&content, "UUID:     ", row.UUID)
	renderEquivalency(&content, row)
	content.WriteString(SubtleStyle.Render("\nPress ESC to return"))
	return BoxStyle.Render(content.String())
}

func writeField(content *strings.Builder, label, value string) {
	content.WriteString(LabelStyle.Render(label))
	content.WriteString(ValueStyle.Render(value))
	content.WriteString("\n")
}

func renderEquivalency(content *strings.Builder, row analysis.ImpactRow) {
	eq := row.Equivalency
	if eq == nil || eq.IsEmpty {
		return
	}
	content.WriteString("\n")
	content.WriteString(HeaderStyle.Render("EQUIVALENT TO"))
	content.WriteString("\n")
	for _, r := range eq.Results {
		content.WriteString(EquivalencyStyle.Render(fmt.Sprintf("  ~%s %s", r.Formatted, r.Kind)))
		content.WriteString("\n")
	}
}
