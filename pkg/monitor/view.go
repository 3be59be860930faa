package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	cardWidth = 28
	minWidth  = 40
	minHeight = 10
)

// renderView renders the full board.
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < minWidth || m.Height < minHeight {
		return m.renderCompact()
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	if len(m.notes) == 0 {
		empty := subtleStyle.Render("No notes on this board. Press n to add one.")
		return lipgloss.JoinVertical(lipgloss.Left, header, "", empty, footer)
	}

	// Lay the cards out in rows, as many per row as the terminal fits.
	perRow := m.Width / (cardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}
	var rows []string
	for start := 0; start < len(m.notes); start += perRow {
		end := start + perRow
		if end > len(m.notes) {
			end = len(m.notes)
		}
		cards := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cards = append(cards, m.renderCard(i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	board := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return lipgloss.JoinVertical(lipgloss.Left, header, board, footer)
}

// renderCompact is the fallback for tiny terminals.
func (m Model) renderCompact() string {
	var s strings.Builder
	fmt.Fprintf(&s, "notewall (resize for board view)\n\n")
	fmt.Fprintf(&s, "Notes: %d\n", len(m.notes))
	if m.status != "" {
		s.WriteString(m.status + "\n")
	}
	s.WriteString("\nq:quit")
	return s.String()
}

// renderHeader renders the title bar with the sync indicator.
func (m Model) renderHeader() string {
	title := titleStyle.Render("notewall")
	sync := m.renderSyncBadge()
	gap := m.Width - lipgloss.Width(title) - lipgloss.Width(sync)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + sync
}

func (m Model) renderSyncBadge() string {
	if !m.visible {
		return pausedStyle.Render("⏸ paused")
	}
	if m.lastSync.IsZero() {
		return subtleStyle.Render(m.spin.View() + " syncing")
	}
	age := time.Since(m.lastSync).Round(time.Second)
	return subtleStyle.Render(fmt.Sprintf("synced %s ago", age))
}

// renderCard renders one sticky note.
func (m Model) renderCard(idx int) string {
	n := m.notes[idx]
	selected := idx == m.noteCursor

	var body strings.Builder
	label := shortID(n.ID)
	if n.Archived() {
		label += " " + archivedBadge.Render("(archived)")
	}
	body.WriteString(label)
	body.WriteString("\n")

	if len(n.Items) == 0 {
		body.WriteString(subtleStyle.Render("(empty)"))
	}
	for i, it := range n.Items {
		body.WriteString("\n")
		if selected && m.mode != editNone && m.editItemID == it.ID {
			body.WriteString(m.input.View())
			continue
		}
		line := checkbox(it.Checked) + " " + it.Content
		switch {
		case selected && i == m.itemCursor:
			body.WriteString(selectedItemStyle.Render(line))
		case it.Checked:
			body.WriteString(checkedItemStyle.Render(line))
		default:
			body.WriteString(line)
		}
	}
	if selected && m.mode == editNew {
		body.WriteString("\n" + m.input.View())
	}

	return styleForNote(n, selected).Width(cardWidth).Render(body.String())
}

// renderFooter renders the status line and key help.
func (m Model) renderFooter() string {
	var status string
	switch {
	case m.statusErr:
		status = errStyle.Render(m.status)
	case m.status != "":
		status = okStyle.Render(m.status)
	}

	var help string
	if m.mode != editNone {
		help = helpStyle.Render("enter:save  ctrl+s:split at cursor  esc:cancel")
	} else {
		help = helpStyle.Render("←→:note  ↑↓:item  space:check  enter:edit  a:add  n:new  c:color  z:archive  d:delete  u:undo  r:refresh  q:quit")
	}

	if status == "" {
		return "\n" + help
	}
	return "\n" + status + "\n" + help
}

// shortID abbreviates a note id for the card label.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
