package tui

import "github.com/charmbracelet/lipgloss"

// Colors.
const (
	colorHeader   = lipgloss.Color("39")
	colorLabel    = lipgloss.Color("245")
	colorValue    = lipgloss.Color("252")
	colorSelected = lipgloss.Color("57")
	colorGreen    = lipgloss.Color("42")
	colorSubtle   = lipgloss.Color("241")
)

// Shared styles.
var (
	HeaderStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)            //nolint:gochecknoglobals // Shared style.
	LabelStyle         = lipgloss.NewStyle().Foreground(colorLabel)                        //nolint:gochecknoglobals // Shared style.
	ValueStyle         = lipgloss.NewStyle().Foreground(colorValue)                        //nolint:gochecknoglobals // Shared style.
	SubtleStyle        = lipgloss.NewStyle().Foreground(colorSubtle)                       //nolint:gochecknoglobals // Shared style.
	EquivalencyStyle   = lipgloss.NewStyle().Foreground(colorGreen)                        //nolint:gochecknoglobals // Shared style.
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1) //nolint:gochecknoglobals // Shared style.
	TableSelectedStyle = lipgloss.NewStyle().Bold(true).Background(colorSelected)          //nolint:gochecknoglobals // Shared style.
	BoxStyle           = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1) //nolint:gochecknoglobals // Shared style.
)
