package monitor

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmilloy/notewall/internal/models"
)

// Messages flowing into the Update loop.

// NotesChangedMsg signals that a poll cycle changed the local collection.
type NotesChangedMsg struct{}

// PollErrMsg carries a failed poll cycle. The scheduler keeps running; the
// view just surfaces the error.
type PollErrMsg struct{ Err error }

// MutationDoneMsg is the result of an optimistic mutation command.
type MutationDoneMsg struct {
	Err error
}

// NoteDeletedMsg announces an optimistic delete that can still be undone.
type NoteDeletedMsg struct {
	NoteID string
}

// StatusMsg sets a transient footer message.
type StatusMsg struct {
	Text    string
	IsError bool
}

// ClearStatusMsg clears the footer message.
type ClearStatusMsg struct{}

// PollerStoppedMsg signals that the background poll loop exited.
type PollerStoppedMsg struct{}

// startPoller launches the scheduler loop. Poll outcomes are forwarded to
// the program through m.updates so they arrive as ordinary messages.
func (m Model) startPoller() tea.Cmd {
	return func() tea.Msg {
		m.sched.Run(m.pollCtx, func(ctx context.Context) (bool, error) {
			changed, err := m.session.Fetch(ctx)
			switch {
			case err != nil:
				m.updates <- PollErrMsg{Err: err}
			case changed:
				m.updates <- NotesChangedMsg{}
			}
			return changed, err
		})
		return PollerStoppedMsg{}
	}
}

// waitForUpdate relays one message from the poller channel. Re-issued after
// every delivery, per the usual bubbletea subscription pattern.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// mutate runs a gateway call off the Update loop and reports the outcome.
func mutate(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return MutationDoneMsg{Err: fn(ctx)}
	}
}

// clearStatusAfter schedules the footer message to clear.
func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// visibleNotes filters out archived notes unless the model shows them.
func visibleNotes(notes []models.Note, showArchived bool) []models.Note {
	if showArchived {
		return notes
	}
	out := notes[:0:0]
	for _, n := range notes {
		if !n.Archived() {
			out = append(out, n)
		}
	}
	return out
}

// nextColor cycles through the palette in a stable order.
func nextColor(c models.Color) models.Color {
	cycle := []models.Color{
		models.ColorYellow, models.ColorPink, models.ColorBlue,
		models.ColorGreen, models.ColorOrange, models.ColorPurple,
	}
	for i, candidate := range cycle {
		if candidate == c {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
