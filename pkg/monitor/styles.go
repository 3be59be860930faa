package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jmilloy/notewall/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	errorColor   = lipgloss.Color("196")
	successColor = lipgloss.Color("42")

	// Note card styles, keyed by note color
	cardStyles = map[models.Color]lipgloss.Style{
		models.ColorYellow: cardStyle(lipgloss.Color("220")),
		models.ColorPink:   cardStyle(lipgloss.Color("212")),
		models.ColorBlue:   cardStyle(lipgloss.Color("39")),
		models.ColorGreen:  cardStyle(lipgloss.Color("42")),
		models.ColorOrange: cardStyle(lipgloss.Color("208")),
		models.ColorPurple: cardStyle(lipgloss.Color("141")),
	}

	selectedCardStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	archivedBadge = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	// Item styles
	selectedItemStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("255"))
	checkedItemStyle = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)

	// Chrome
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errStyle    = lipgloss.NewStyle().Foreground(errorColor)
	okStyle     = lipgloss.NewStyle().Foreground(successColor)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

func cardStyle(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// styleForNote picks the card border style for a note.
func styleForNote(n models.Note, selected bool) lipgloss.Style {
	if selected {
		return selectedCardStyle
	}
	if s, ok := cardStyles[n.Color]; ok {
		return s
	}
	return cardStyles[models.DefaultColor]
}

// checkbox renders an item's checked marker.
func checkbox(checked bool) string {
	if checked {
		return "[✓]"
	}
	return "[ ]"
}
