// Package monitor is the live board view: a bubbletea program that renders
// one board, applies mutations optimistically, and keeps the collection
// fresh through the adaptive poll scheduler. Polling pauses while the
// terminal loses focus and resumes with an immediate fetch.
package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmilloy/notewall/internal/board"
	"github.com/jmilloy/notewall/internal/gateway"
	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/poll"
)

type editMode int

const (
	editNone editMode = iota
	editExisting
	editNew
)

// Model is the bubbletea model for the board view.
type Model struct {
	session *board.Session
	gw      *gateway.Gateway
	sched   *poll.Scheduler
	pollCtx context.Context
	cancel  context.CancelFunc
	updates chan tea.Msg

	// Window dimensions
	Width  int
	Height int

	// Render snapshot of the collection, refreshed after every poll or
	// mutation. The gateway owns the authoritative copy.
	notes        []models.Note
	noteCursor   int
	itemCursor   int
	showArchived bool

	// Edit session state
	mode       editMode
	editItemID string
	input      textinput.Model

	spin     spinner.Model
	visible  bool
	lastSync time.Time

	// Transient footer feedback
	status    string
	statusErr bool

	// Last optimistically deleted note, still inside the undo window
	pendingUndo string

	Version string
}

// NewModel creates the board view model. The scheduler is started by Init.
func NewModel(session *board.Session, sched *poll.Scheduler, version string) Model {
	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.CharLimit = 500
	ti.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session: session,
		gw:      session.Gateway(),
		sched:   sched,
		pollCtx: ctx,
		cancel:  cancel,
		updates: make(chan tea.Msg, 8),
		input:   ti,
		spin:    sp,
		visible: true,
		Version: version,
	}
	m.refreshNotes()
	return m
}

// Init starts the spinner, the poll loop, and the update relay.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.startPoller(), m.waitForUpdate())
}

// refreshNotes re-snapshots the gateway collection and clamps the cursors.
func (m *Model) refreshNotes() {
	m.notes = visibleNotes(m.gw.Notes(), m.showArchived)
	if m.noteCursor >= len(m.notes) {
		m.noteCursor = len(m.notes) - 1
	}
	if m.noteCursor < 0 {
		m.noteCursor = 0
	}
	m.clampItemCursor()
}

func (m *Model) clampItemCursor() {
	items := m.selectedItems()
	if m.itemCursor >= len(items) {
		m.itemCursor = len(items) - 1
	}
	if m.itemCursor < 0 {
		m.itemCursor = 0
	}
}

func (m Model) selectedNote() *models.Note {
	if m.noteCursor < 0 || m.noteCursor >= len(m.notes) {
		return nil
	}
	return &m.notes[m.noteCursor]
}

func (m Model) selectedItems() []models.ChecklistItem {
	if n := m.selectedNote(); n != nil {
		return n.Items
	}
	return nil
}

func (m Model) selectedItem() *models.ChecklistItem {
	items := m.selectedItems()
	if m.itemCursor < 0 || m.itemCursor >= len(items) {
		return nil
	}
	return &items[m.itemCursor]
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusErr = isErr
	return clearStatusAfter(4 * time.Second)
}

// Update is the bubbletea update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.FocusMsg:
		m.visible = true
		m.sched.SetVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.visible = false
		m.sched.SetVisible(false)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case NotesChangedMsg:
		m.lastSync = time.Now()
		m.refreshNotes()
		return m, m.waitForUpdate()

	case PollErrMsg:
		cmd := m.setStatus("sync failed: "+msg.Err.Error(), true)
		return m, tea.Batch(cmd, m.waitForUpdate())

	case PollerStoppedMsg:
		return m, nil

	case MutationDoneMsg:
		m.refreshNotes()
		if msg.Err != nil {
			return m, m.setStatus(msg.Err.Error(), true)
		}
		return m, nil

	case NoteDeletedMsg:
		m.pendingUndo = msg.NoteID
		m.refreshNotes()
		return m, m.setStatus("note deleted, press u to undo", false)

	case StatusMsg:
		return m, m.setStatus(msg.Text, msg.IsError)

	case ClearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey routes key input by edit mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != editNone {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()

	case "left", "h":
		if m.noteCursor > 0 {
			m.noteCursor--
			m.itemCursor = 0
		}
	case "right", "l":
		if m.noteCursor < len(m.notes)-1 {
			m.noteCursor++
			m.itemCursor = 0
		}
	case "up", "k":
		if m.itemCursor > 0 {
			m.itemCursor--
		}
	case "down", "j":
		if m.itemCursor < len(m.selectedItems())-1 {
			m.itemCursor++
		}

	case " ":
		note, item := m.selectedNote(), m.selectedItem()
		if note == nil || item == nil {
			return m, nil
		}
		noteID, itemID, checked := note.ID, item.ID, !item.Checked
		return m, mutate(func(ctx context.Context) error {
			_, err := m.gw.SetItemChecked(ctx, noteID, itemID, checked)
			return err
		})

	case "enter":
		item := m.selectedItem()
		if item == nil {
			return m, nil
		}
		m.mode = editExisting
		m.editItemID = item.ID
		m.gw.BeginEdit(item.ID)
		m.input.SetValue(item.Content)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case "a":
		if m.selectedNote() == nil {
			return m, nil
		}
		m.mode = editNew
		m.editItemID = ""
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "n":
		return m, mutate(func(ctx context.Context) error {
			_, err := m.gw.CreateNote(ctx, models.DefaultColor, nil)
			return err
		})

	case "c":
		note := m.selectedNote()
		if note == nil {
			return m, nil
		}
		noteID, color := note.ID, nextColor(note.Color)
		return m, mutate(func(ctx context.Context) error {
			_, err := m.gw.SetColor(ctx, noteID, color)
			return err
		})

	case "z":
		note := m.selectedNote()
		if note == nil {
			return m, nil
		}
		noteID, archived := note.ID, note.Archived()
		return m, mutate(func(ctx context.Context) error {
			var err error
			if archived {
				_, err = m.gw.Unarchive(ctx, noteID)
			} else {
				_, err = m.gw.Archive(ctx, noteID)
			}
			return err
		})

	case "A":
		m.showArchived = !m.showArchived
		m.refreshNotes()

	case "d":
		note := m.selectedNote()
		if note == nil {
			return m, nil
		}
		noteID := note.ID
		return m, func() tea.Msg {
			if err := m.gw.DeleteNote(context.Background(), noteID); err != nil {
				return MutationDoneMsg{Err: err}
			}
			return NoteDeletedMsg{NoteID: noteID}
		}

	case "u":
		if m.pendingUndo == "" {
			return m, nil
		}
		noteID := m.pendingUndo
		m.pendingUndo = ""
		if !m.gw.Undo(noteID) {
			return m, m.setStatus("too late to undo", true)
		}
		m.refreshNotes()
		return m, m.setStatus("delete undone", false)

	case "r":
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			changed, err := m.session.Fetch(ctx)
			switch {
			case err != nil:
				return PollErrMsg{Err: err}
			case changed:
				return NotesChangedMsg{}
			}
			return StatusMsg{Text: "board is up to date"}
		}
	}
	return m, nil
}

// handleEditKey drives the inline item editor.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveEdit(), nil

	case "enter":
		note := m.selectedNote()
		content := m.input.Value()
		mode, itemID := m.mode, m.editItemID
		next := m.leaveEdit()
		if note == nil {
			return next, nil
		}
		noteID := note.ID
		if mode == editNew {
			return next, mutate(func(ctx context.Context) error {
				_, err := m.gw.AddItem(ctx, noteID, content)
				return err
			})
		}
		return next, mutate(func(ctx context.Context) error {
			_, err := m.gw.EditItem(ctx, noteID, itemID, content)
			return err
		})

	case "ctrl+s":
		// Split at the cursor: the text after it becomes a new item
		// directly below, keeping its fractional position until the next
		// full rewrite.
		if m.mode != editExisting {
			return m, nil
		}
		note := m.selectedNote()
		content, cursor := m.input.Value(), m.input.Position()
		itemID := m.editItemID
		next := m.leaveEdit()
		if note == nil {
			return next, nil
		}
		noteID := note.ID
		return next, mutate(func(ctx context.Context) error {
			if _, err := m.gw.EditItem(ctx, noteID, itemID, content); err != nil {
				return err
			}
			_, err := m.gw.SplitItem(ctx, noteID, itemID, cursor)
			return err
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// leaveEdit tears down the inline editor and releases the edit hold.
func (m Model) leaveEdit() Model {
	if m.mode == editExisting && m.editItemID != "" {
		m.gw.EndEdit(m.editItemID)
	}
	m.mode = editNone
	m.editItemID = ""
	m.input.Blur()
	m.input.SetValue("")
	return m
}

// quit stops the poller, commits pending deletes, and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Sequence(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			m.session.Close(ctx)
			return nil
		},
		tea.Quit,
	)
}

// View renders the board.
func (m Model) View() string {
	return m.renderView()
}
