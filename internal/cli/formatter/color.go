package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// plain disables all styling, e.g. when stdout is not a terminal.
var plain bool

// SetPlain turns styling off (true) or back on.
func SetPlain(on bool) { plain = on }

func paint(style lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return style.Render(text)
}

// StatusColor returns the style for a task status.
func StatusColor(status domain.TaskStatus) lipgloss.Style {
	switch status {
	case domain.TaskApproved:
		return StyleGreen
	case domain.TaskPending, domain.TaskInProgress:
		return StyleBlue
	case domain.TaskRejected:
		return StyleRed
	case domain.TaskDraft:
		return StyleYellow
	case domain.TaskWithdrawn, domain.TaskCancelled:
		return StyleDim
	default:
		return StyleDim
	}
}

// StatusIndicator returns a colored status marker such as "● APPROVED".
func StatusIndicator(status domain.TaskStatus) string {
	mark := "●"
	switch status {
	case domain.TaskDraft:
		mark = "○"
	case domain.TaskApproved:
		mark = "✔"
	case domain.TaskWithdrawn, domain.TaskCancelled:
		mark = "✖"
	case domain.TaskRejected:
		mark = "↩"
	case domain.TaskPending, domain.TaskInProgress:
	}
	return paint(StatusColor(status), mark+" "+string(status))
}

// ResultIndicator renders a ledger result.
func ResultIndicator(result domain.RecordResult) string {
	switch result {
	case domain.ResultApproved:
		return paint(StyleGreen, string(result))
	case domain.ResultRejected:
		return paint(StyleRed, string(result))
	case domain.ResultPending:
		return paint(StyleBlue, string(result))
	case domain.ResultTransferred:
		return paint(StylePurple, string(result))
	default:
		return paint(StyleDim, string(result))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len([]rune(upper)))
	return fmt.Sprintf("%s\n%s", paint(StyleHeader, upper), paint(StyleDim, line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return paint(StyleDim, text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return paint(StyleBold, text)
}
