package tui

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/greenops"
)

// Key bindings.
const (
	keyQuit  = "q"
	keyCtrlC = "ctrl+c"
	keyEnter = "enter"
	keyEsc   = "esc"
	keyS     = "s"
)

const defaultTableHeight = 15

// ViewState is the screen an ImpactsModel shows.
type ViewState int

// View states.
const (
	ViewStateList ViewState = iota
	ViewStateDetail
	ViewStateQuitting
)

// SortField orders impact rows.
type SortField int

// Sort fields.
const (
	SortByServer SortField = iota
	SortByName
	SortByAmount
	numSortFields
)

// String returns the label shown in the status bar.
func (s SortField) String() string {
	switch s {
	case SortByServer:
		return "Server order"
	case SortByName:
		return "Name"
	case SortByAmount:
		return "Amount"
	default:
		return "Unknown"
	}
}

// ImpactsModel browses the total impacts of a calculation.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type ImpactsModel struct {
	title    string
	state    ViewState
	allRows  []analysis.ImpactRow
	rows     []analysis.ImpactRow
	table    table.Model
	selected int
	sortBy   SortField
	height   int
}

// NewImpactsModel builds the list view for t. title heads the screen,
// usually the product system name.
func NewImpactsModel(title string, t *analysis.ImpactTable) ImpactsModel {
	m := ImpactsModel{title: title, state: ViewStateList, height: defaultTableHeight}
	if t != nil {
		m.allRows = append(m.allRows, t.Rows...)
	}
	m.refreshTable()
	return m
}

// Init implements tea.Model.
func (m ImpactsModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m ImpactsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		if h := winMsg.Height - 6; h > 0 { //nolint:mnd // Title, status bar and borders.
			m.height = h
		}
		m.table = m.buildTable()
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	switch m.state {
	case ViewStateList:
		if !ok {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m.handleListKeypress(keyMsg)
	case ViewStateDetail:
		if !ok {
			return m, nil
		}
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			m.state = ViewStateQuitting
			return m, tea.Quit
		case keyEsc:
			m.state = ViewStateList
			m.table.Focus()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m ImpactsModel) handleListKeypress(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch keyMsg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyEnter:
		m.selected = m.table.Cursor()
		if m.selected >= 0 && m.selected < len(m.rows) {
			m.state = ViewStateDetail
		}
		return m, nil
	case keyS:
		m.sortBy = (m.sortBy + 1) % numSortFields
		m.refreshTable()
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(keyMsg)
		return m, cmd
	}
}

// Rows returns the rows in display order.
func (m ImpactsModel) Rows() []analysis.ImpactRow { return m.rows }

func (m *ImpactsModel) refreshTable() {
	m.rows = append(m.rows[:0], m.allRows...)
	switch m.sortBy {
	case SortByName:
		sort.SliceStable(m.rows, func(i, j int) bool { return m.rows[i].Name < m.rows[j].Name })
	case SortByAmount:
		sort.SliceStable(m.rows, func(i, j int) bool {
			return math.Abs(m.rows[i].Amount) > math.Abs(m.rows[j].Amount)
		})
	case SortByServer, numSortFields:
	}
	m.table = m.buildTable()
}

func (m *ImpactsModel) buildTable() table.Model {
	columns := []table.Column{
		{Title: "Impact category", Width: 40}, //nolint:mnd // Column width.
		{Title: "Amount", Width: 14},          //nolint:mnd // Column width.
		{Title: "Units", Width: 16},           //nolint:mnd // Column width.
	}
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = table.Row{truncate(r.Name, 40), greenops.FormatAmount(r.Amount), r.Units} //nolint:mnd // Column width.
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(m.state == ViewStateList),
		table.WithHeight(m.height),
	)
	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// RunImpacts shows t interactively until the user quits.
func RunImpacts(ctx context.Context, title string, t *analysis.ImpactTable) error {
	p := tea.NewProgram(NewImpactsModel(title, t), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running impacts view: %w", err)
	}
	return nil
}

// RenderImpacts writes t as a non-interactive table. Styled mode adds
// lipgloss colors; plain mode writes bare text.
func RenderImpacts(w io.Writer, mode OutputMode, title string, t *analysis.ImpactTable) error {
	var b strings.Builder
	header := func(s string) string { return s }
	label := header
	green := header
	if mode != OutputModePlain {
		header = func(s string) string { return HeaderStyle.Render(s) }
		label = func(s string) string { return LabelStyle.Render(s) }
		green = func(s string) string { return EquivalencyStyle.Render(s) }
	}

	if title != "" {
		b.WriteString(header(title))
		b.WriteString("\n\n")
	}
	if t == nil || len(t.Rows) == 0 {
		b.WriteString("No impact results.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "%-40s %14s  %s\n", label("IMPACT CATEGORY"), label("AMOUNT"), label("UNITS"))
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-40s %14s  %s\n", truncate(r.Name, 40), greenops.FormatAmount(r.Amount), r.Units) //nolint:mnd // Column width.
		if r.Equivalency != nil && r.Equivalency.CompactText != "" {
			fmt.Fprintf(&b, "  %s\n", green(r.Equivalency.CompactText))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
