package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/stefanpenner/anchor/pkg/goals"
)

// Palette
var (
	ColorPurple      = lipgloss.Color("#7D56F4")
	ColorGreen       = lipgloss.Color("#25A065")
	ColorBlue        = lipgloss.Color("#4285F4")
	ColorRed         = lipgloss.Color("#E05252")
	ColorYellow      = lipgloss.Color("#E5C07B")
	ColorGray        = lipgloss.Color("#626262")
	ColorGrayDim     = lipgloss.Color("#404040")
	ColorWhite       = lipgloss.Color("#FFFFFF")
	ColorOffWhite    = lipgloss.Color("#D0D0D0")
	ColorSelectionBg = lipgloss.Color("#2D3B4D")
	ColorCyan        = lipgloss.Color("#56B6C2")
	ColorOrange      = lipgloss.Color("#D19A66")

	ColorSearchRowBg  = lipgloss.Color("#1E1A2E")
	ColorSearchCharBg = lipgloss.Color("#2E2545")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func bold(c lipgloss.Color) lipgloss.Style { return fg(c).Bold(true) }

// Chrome
var (
	HeaderStyle      = bold(ColorPurple)
	HeaderCountStyle = fg(ColorGray)
	FooterStyle      = fg(ColorGray)
	InputPromptStyle = bold(ColorPurple)

	CrumbActiveStyle = bold(ColorWhite).Background(ColorPurple).Padding(0, 1)
	CrumbStyle       = fg(ColorGray).Padding(0, 1)
)

// Rows. A row's status icon and colour follow its completion state, with a
// pending completion shown over everything else.
var (
	SelectedStyle   = bold(ColorWhite).Background(ColorSelectionBg)
	CompleteStyle   = fg(ColorGreen)
	LateStyle       = fg(ColorOrange)
	IncompleteStyle = fg(ColorOffWhite)
	CompletingStyle = fg(ColorCyan).Italic(true)
	OverdueStyle    = fg(ColorRed)
	DeadlineStyle   = fg(ColorGray)

	DepthIndent = "  "
)

// Status sections of the top level.
var (
	SectionOverdueStyle    = bold(ColorRed)
	SectionInProgressStyle = fg(ColorYellow)
	SectionCompletedStyle  = fg(ColorGreen)
)

// Modals
var (
	ModalStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorPurple).Padding(1, 2)
	ModalTitleStyle = bold(ColorPurple)
	ModalLabelStyle = fg(ColorGray).Width(14)
	ModalValueStyle = fg(ColorWhite)
)

// Search
var (
	SearchBarStyle          = fg(ColorWhite)
	SearchRowStyle          = lipgloss.NewStyle().Background(ColorSearchRowBg)
	SearchCharStyle         = bold(ColorPurple).Background(ColorSearchCharBg)
	SearchCharSelectedStyle = bold(ColorPurple).Background(ColorSelectionBg)
	SearchCountStyle        = fg(ColorGray)
)

const (
	IconComplete   = "✓"
	IconLate       = "✓"
	IconCompleting = "◐"
	IconIncomplete = "○"
	IconRecurring  = "↻"
	IconExpanded   = "▼"
	IconCollapsed  = "▶"
)

// statusIcon renders the completion marker for a row.
func statusIcon(n goals.Node, completing bool) string {
	switch {
	case completing:
		return CompletingStyle.Render(IconCompleting)
	case stateOf(n) == goals.StateCompletedLate:
		return LateStyle.Render(IconLate)
	case n.IsCompleted():
		return CompleteStyle.Render(IconComplete)
	default:
		return IncompleteStyle.Render(IconIncomplete)
	}
}

func expandIcon(item TreeItem) string {
	switch {
	case !item.HasChildren:
		return "  "
	case item.IsExpanded:
		return IconExpanded + " "
	default:
		return IconCollapsed + " "
	}
}
