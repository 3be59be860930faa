// Package gateway owns the local note collection and wraps every mutation
// in the optimistic apply / network call / rollback-or-adopt cycle.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/noteclient"
	"github.com/jmilloy/notewall/internal/order"
	"github.com/jmilloy/notewall/internal/reconcile"
)

// Sentinel errors for lookups against the local collection.
var (
	ErrNoSuchNote = errors.New("no such note")
	ErrNoSuchItem = errors.New("no such checklist item")
	ErrClosed     = errors.New("board view closed")
)

// DefaultGraceWindow is how long a deleted note can be undone before the
// delete request is committed.
const DefaultGraceWindow = 3 * time.Second

// API is the server surface the gateway needs. *noteclient.Client satisfies it.
type API interface {
	CreateNote(ctx context.Context, boardID string, body *noteclient.NoteCreate) (*models.Note, error)
	UpdateNote(ctx context.Context, boardID, noteID string, body *noteclient.NoteUpdate) (*models.Note, error)
	DeleteNote(ctx context.Context, boardID, noteID string) error
}

// Reporter receives authoritative change reports. Debounce and suppression
// live behind this interface, not in the gateway. Report is called
// synchronously, sometimes under the gateway lock: it must only queue and
// return, never block or call back into the gateway.
type Reporter interface {
	Report(models.ChangeReport)
}

// Options tunes a Gateway.
type Options struct {
	Reporter        Reporter
	GraceWindow     time.Duration // 0 means DefaultGraceWindow; negative commits deletes immediately
	CreationTimeout time.Duration
	OnError         func(error) // async failures (grace-window commits, expired creations)
}

type pendingDelete struct {
	note  models.Note
	index int
	timer *time.Timer
}

// Gateway applies mutations optimistically and reconciles poll results.
// The note collection is replaced as a whole under the lock, never patched
// across suspension points.
type Gateway struct {
	api     API
	boardID string
	userID  string
	opts    Options

	mu               sync.Mutex
	notes            []models.Note
	seq              uint64
	mutationSeq      map[string]uint64
	pendingCreations map[string]time.Time
	pendingDeletes   map[string]*pendingDelete
	activeEdits      map[string]bool
	closed           bool
	now              func() time.Time
}

// New creates a gateway for one board view session.
func New(api API, boardID, userID string, opts Options) *Gateway {
	if opts.GraceWindow == 0 {
		opts.GraceWindow = DefaultGraceWindow
	}
	return &Gateway{
		api:              api,
		boardID:          boardID,
		userID:           userID,
		opts:             opts,
		mutationSeq:      make(map[string]uint64),
		pendingCreations: make(map[string]time.Time),
		pendingDeletes:   make(map[string]*pendingDelete),
		activeEdits:      make(map[string]bool),
		now:              time.Now,
	}
}

// Seed installs an initial collection, typically the first fetch or a
// cached snapshot.
func (g *Gateway) Seed(notes []models.Note) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notes = models.CloneNotes(notes)
}

// Notes returns a copy of the current collection.
func (g *Gateway) Notes() []models.Note {
	g.mu.Lock()
	defer g.mu.Unlock()
	return models.CloneNotes(g.notes)
}

// FindNote resolves a note by id or unique id prefix.
func (g *Gateway) FindNote(prefix string) (models.Note, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var found *models.Note
	for i := range g.notes {
		if g.notes[i].ID == prefix {
			return g.notes[i].Clone(), nil
		}
		if strings.HasPrefix(g.notes[i].ID, prefix) {
			if found != nil {
				return models.Note{}, fmt.Errorf("%w: ambiguous prefix %q", ErrNoSuchNote, prefix)
			}
			found = &g.notes[i]
		}
	}
	if found == nil {
		return models.Note{}, fmt.Errorf("%w: %q", ErrNoSuchNote, prefix)
	}
	return found.Clone(), nil
}

// BeginEdit marks a note or item id as under active local edit. While
// active, reconciliation leaves its content untouched.
func (g *Gateway) BeginEdit(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeEdits[id] = true
}

// EndEdit clears the active edit flag.
func (g *Gateway) EndEdit(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.activeEdits, id)
}

// Close tears the view down: pending grace-window deletes are committed,
// and any mutation responses that arrive later are discarded.
func (g *Gateway) Close(ctx context.Context) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	var commits []*pendingDelete
	for id, pd := range g.pendingDeletes {
		pd.timer.Stop()
		commits = append(commits, pd)
		delete(g.pendingDeletes, id)
	}
	g.mu.Unlock()

	for _, pd := range commits {
		if err := g.api.DeleteNote(ctx, g.boardID, pd.note.ID); err != nil && !errors.Is(err, noteclient.ErrNotFound) {
			slog.Warn("commit delete on close", "note", pd.note.ID, "err", err)
		}
	}
}

func (g *Gateway) nextSeqLocked() uint64 {
	g.seq++
	return g.seq
}

func (g *Gateway) stampLocked(ids ...string) {
	s := g.nextSeqLocked()
	for _, id := range ids {
		g.mutationSeq[id] = s
	}
}

func (g *Gateway) indexLocked(noteID string) int {
	for i := range g.notes {
		if g.notes[i].ID == noteID {
			return i
		}
	}
	return -1
}

// report hands a change to the reporter before the mutation returns, so a
// caller that flushes on exit is guaranteed to see it queued. The slow work
// (dispatch) happens on the reporter's own debounce timer.
func (g *Gateway) report(r models.ChangeReport) {
	if g.opts.Reporter == nil {
		return
	}
	r.UserID = g.userID
	r.BoardID = g.boardID
	if r.Timestamp.IsZero() {
		r.Timestamp = g.now()
	}
	g.opts.Reporter.Report(r)
}

func (g *Gateway) asyncError(err error) {
	if g.opts.OnError != nil {
		g.opts.OnError(err)
	}
}

// CreateNote inserts an optimistic placeholder, fires the create request,
// and promotes the temp id to the server id on success. On failure the
// placeholder is removed.
func (g *Gateway) CreateNote(ctx context.Context, color models.Color, contents []string) (*models.Note, error) {
	if color == "" {
		color = models.DefaultColor
	}
	tempID := "tmp-" + uuid.NewString()
	now := g.now()
	placeholder := models.Note{
		ID:        tempID,
		BoardID:   g.boardID,
		CreatedBy: g.userID,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	body := &noteclient.NoteCreate{Color: color}
	for i, content := range contents {
		itemID := "tmp-" + uuid.NewString()
		placeholder.Items = append(placeholder.Items, models.ChecklistItem{
			ID: itemID, Content: content, Order: float64(i),
		})
		body.Items = append(body.Items, noteclient.ItemInput{ID: itemID, Content: content, Order: float64(i)})
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	g.notes = append(models.CloneNotes(g.notes), placeholder)
	g.pendingCreations[tempID] = now
	g.stampLocked(tempID)
	g.mu.Unlock()

	created, err := g.api.CreateNote(ctx, g.boardID, body)

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pendingCreations, tempID)
	if g.closed {
		slog.Debug("create response after close discarded", "note", tempID)
		return created, err
	}
	idx := g.indexLocked(tempID)
	if err != nil {
		if idx >= 0 {
			g.notes = append(models.CloneNotes(g.notes[:idx]), models.CloneNotes(g.notes[idx+1:])...)
		}
		return nil, fmt.Errorf("create note: %w", err)
	}
	confirmed := created.Clone()
	if idx >= 0 {
		notes := models.CloneNotes(g.notes)
		notes[idx] = confirmed
		g.notes = notes
	} else if g.indexLocked(created.ID) < 0 {
		// Placeholder expired while the request was in flight.
		g.notes = append(models.CloneNotes(g.notes), confirmed)
	}
	g.stampLocked(created.ID)
	g.report(models.ChangeReport{NoteID: created.ID, Kind: models.ChangeNoteCreated})
	return created, nil
}

// mutateNote runs the shared optimistic update cycle: snapshot, apply,
// persist the full note, then adopt the server echo or roll back.
func (g *Gateway) mutateNote(ctx context.Context, noteID string, normalize bool, apply func(n *models.Note) ([]models.ChangeReport, error)) (*models.Note, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	idx := g.indexLocked(noteID)
	if idx < 0 {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNoSuchNote, noteID)
	}
	snapshot := g.notes[idx].Clone()

	notes := models.CloneNotes(g.notes)
	reports, err := apply(&notes[idx])
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	if normalize {
		notes[idx].Items = order.Normalize(notes[idx].Items)
	}
	if reflect.DeepEqual(snapshot, notes[idx]) {
		// No-op mutation (archive of an archived note, and the like):
		// nothing to persist, no sequence stamp, no report.
		g.mu.Unlock()
		unchanged := snapshot
		return &unchanged, nil
	}
	optimistic := notes[idx].Clone()
	g.notes = notes
	stamped := []string{noteID}
	for _, it := range optimistic.Items {
		stamped = append(stamped, it.ID)
	}
	g.stampLocked(stamped...)
	body := buildUpdate(snapshot, optimistic)
	g.mu.Unlock()

	updated, err := g.api.UpdateNote(ctx, g.boardID, noteID, body)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		slog.Debug("update response after close discarded", "note", noteID)
		return updated, err
	}
	idx = g.indexLocked(noteID)
	if err != nil {
		if idx >= 0 {
			restored := models.CloneNotes(g.notes)
			restored[idx] = snapshot
			g.notes = restored
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	if idx >= 0 {
		adopted := models.CloneNotes(g.notes)
		adopted[idx] = g.adoptLocked(adopted[idx], updated.Clone())
		g.notes = adopted
		g.stampLocked(noteID)
	}
	for _, r := range reports {
		g.report(r)
	}
	return updated, nil
}

// adoptLocked takes the server echo as authoritative but keeps items the
// user has started editing since the request went out.
func (g *Gateway) adoptLocked(local, server models.Note) models.Note {
	for i := range server.Items {
		if !g.activeEdits[server.Items[i].ID] {
			continue
		}
		if lit := local.Item(server.Items[i].ID); lit != nil {
			server.Items[i].Content = lit.Content
		}
	}
	return server
}

// buildUpdate converts the optimistic note into a partial update body,
// always carrying the full checklist rewrite.
func buildUpdate(prev, next models.Note) *noteclient.NoteUpdate {
	body := &noteclient.NoteUpdate{}
	if next.Color != prev.Color {
		c := next.Color
		body.Color = &c
	}
	switch {
	case next.ArchivedAt != nil && prev.ArchivedAt == nil:
		t := *next.ArchivedAt
		body.ArchivedAt = &t
	case next.ArchivedAt == nil && prev.ArchivedAt != nil:
		body.Unarchive = true
	}
	for _, it := range next.Items {
		body.Items = append(body.Items, noteclient.ItemInput{
			ID:      it.ID,
			Content: it.Content,
			Checked: it.Checked,
			Order:   it.Order,
		})
	}
	return body
}

// SetColor changes a note's color.
func (g *Gateway) SetColor(ctx context.Context, noteID string, color models.Color) (*models.Note, error) {
	if !models.ValidColor(color) {
		return nil, fmt.Errorf("unknown color %q", color)
	}
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		n.Color = color
		return nil, nil
	})
}

// Archive soft-archives a note.
func (g *Gateway) Archive(ctx context.Context, noteID string) (*models.Note, error) {
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		if n.ArchivedAt != nil {
			return nil, nil
		}
		t := g.now()
		n.ArchivedAt = &t
		return []models.ChangeReport{{NoteID: noteID, Kind: models.ChangeNoteArchived}}, nil
	})
}

// Unarchive restores an archived note.
func (g *Gateway) Unarchive(ctx context.Context, noteID string) (*models.Note, error) {
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		if n.ArchivedAt == nil {
			return nil, nil
		}
		n.ArchivedAt = nil
		return []models.ChangeReport{{NoteID: noteID, Kind: models.ChangeNoteRestored}}, nil
	})
}

// AddItem appends a checklist item to a note.
func (g *Gateway) AddItem(ctx context.Context, noteID, content string) (*models.Note, error) {
	itemID := "tmp-" + uuid.NewString()
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		next := float64(0)
		for _, it := range n.Items {
			if it.Order >= next {
				next = it.Order + 1
			}
		}
		n.Items = append(n.Items, models.ChecklistItem{ID: itemID, NoteID: noteID, Content: content, Order: next})
		return []models.ChangeReport{{NoteID: noteID, ItemID: itemID, Kind: models.ChangeItemCreated, Content: content}}, nil
	})
}

// SetItemChecked toggles an item's checked state.
func (g *Gateway) SetItemChecked(ctx context.Context, noteID, itemID string, checked bool) (*models.Note, error) {
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		it := n.Item(itemID)
		if it == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchItem, itemID)
		}
		if it.Checked == checked {
			return nil, nil
		}
		it.Checked = checked
		kind := models.ChangeItemCompleted
		if !checked {
			kind = models.ChangeItemReopened
		}
		return []models.ChangeReport{{NoteID: noteID, ItemID: itemID, Kind: kind, Content: it.Content}}, nil
	})
}

// EditItem replaces an item's content.
func (g *Gateway) EditItem(ctx context.Context, noteID, itemID, content string) (*models.Note, error) {
	return g.mutateNote(ctx, noteID, true, func(n *models.Note) ([]models.ChangeReport, error) {
		it := n.Item(itemID)
		if it == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchItem, itemID)
		}
		it.Content = content
		return []models.ChangeReport{{NoteID: noteID, ItemID: itemID, Kind: models.ChangeItemEdited, Content: content}}, nil
	})
}

// SplitItem splits an item at the cursor: text before stays on the
// original, text after becomes a new item at the midpoint order between the
// original and its successor. Renormalization is deferred to the next full
// rewrite, so the original item's order is untouched.
func (g *Gateway) SplitItem(ctx context.Context, noteID, itemID string, cursor int) (*models.Note, error) {
	newID := "tmp-" + uuid.NewString()
	g.mu.Lock()
	g.pendingCreations[newID] = g.now()
	g.mu.Unlock()

	note, err := g.mutateNote(ctx, noteID, false, func(n *models.Note) ([]models.ChangeReport, error) {
		pos := -1
		for i := range n.Items {
			if n.Items[i].ID == itemID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchItem, itemID)
		}
		orig := &n.Items[pos]
		// The cursor is a rune offset (editors report caret positions in
		// runes); byte slicing would cut multibyte content mid-rune.
		runes := []rune(orig.Content)
		if cursor < 0 || cursor > len(runes) {
			return nil, fmt.Errorf("split cursor %d out of range", cursor)
		}
		head, tail := string(runes[:cursor]), string(runes[cursor:])
		next := orig.Order + 1
		if pos+1 < len(n.Items) {
			next = n.Items[pos+1].Order
		}
		newItem := models.ChecklistItem{
			ID:      newID,
			NoteID:  noteID,
			Content: tail,
			Checked: orig.Checked,
			Order:   order.Midpoint(orig.Order, next),
		}
		orig.Content = head
		rest := append([]models.ChecklistItem{newItem}, n.Items[pos+1:]...)
		n.Items = append(n.Items[:pos+1:pos+1], rest...)
		return []models.ChangeReport{{NoteID: noteID, ItemID: newID, Kind: models.ChangeItemCreated, Content: tail}}, nil
	})

	g.mu.Lock()
	delete(g.pendingCreations, newID)
	g.mu.Unlock()
	return note, err
}

// DeleteNote removes the note locally and commits the delete request after
// the undo grace window. Undo cancels the commit and restores the note.
func (g *Gateway) DeleteNote(ctx context.Context, noteID string) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	idx := g.indexLocked(noteID)
	if idx < 0 {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNoSuchNote, noteID)
	}
	removed := g.notes[idx].Clone()
	g.notes = append(models.CloneNotes(g.notes[:idx]), models.CloneNotes(g.notes[idx+1:])...)
	g.stampLocked(noteID)

	if g.opts.GraceWindow < 0 {
		g.pendingDeletes[noteID] = &pendingDelete{note: removed, index: idx, timer: time.NewTimer(0)}
		g.mu.Unlock()
		return g.commitDelete(ctx, noteID)
	}

	pd := &pendingDelete{note: removed, index: idx}
	pd.timer = time.AfterFunc(g.opts.GraceWindow, func() {
		if err := g.commitDelete(context.Background(), noteID); err != nil {
			g.asyncError(err)
		}
	})
	g.pendingDeletes[noteID] = pd
	g.mu.Unlock()
	return nil
}

// commitDelete fires the actual delete request once the grace window has
// elapsed (or immediately when there is none).
func (g *Gateway) commitDelete(ctx context.Context, noteID string) error {
	g.mu.Lock()
	pd, ok := g.pendingDeletes[noteID]
	if !ok {
		g.mu.Unlock()
		return nil // undone
	}
	delete(g.pendingDeletes, noteID)
	closed := g.closed
	g.mu.Unlock()

	err := g.api.DeleteNote(ctx, g.boardID, noteID)
	if errors.Is(err, noteclient.ErrNotFound) {
		// Another session already deleted it; our removal stands.
		err = nil
	}
	if err != nil {
		g.mu.Lock()
		if !g.closed {
			g.restoreLocked(pd)
		}
		g.mu.Unlock()
		return fmt.Errorf("delete note: %w", err)
	}
	if !closed {
		g.report(models.ChangeReport{NoteID: noteID, Kind: models.ChangeNoteDeleted})
	}
	return nil
}

// Undo cancels a pending delete inside the grace window and restores the
// note. Returns false when the window has already elapsed.
func (g *Gateway) Undo(noteID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd, ok := g.pendingDeletes[noteID]
	if !ok {
		return false
	}
	if !pd.timer.Stop() {
		// Commit already started; too late.
		return false
	}
	delete(g.pendingDeletes, noteID)
	g.restoreLocked(pd)
	g.stampLocked(noteID)
	return true
}

func (g *Gateway) restoreLocked(pd *pendingDelete) {
	notes := models.CloneNotes(g.notes)
	idx := pd.index
	if idx > len(notes) {
		idx = len(notes)
	}
	notes = append(notes[:idx:idx], append([]models.Note{pd.note.Clone()}, notes[idx:]...)...)
	g.notes = notes
}

// BeginPoll snapshots the mutation sequence before a poll fetch is issued.
// Pass the value to ApplyFetch so older poll data cannot regress newer
// optimistic state.
func (g *Gateway) BeginPoll() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// ApplyFetch reconciles a full poll result into the local collection.
// Returns whether anything visible changed. Results arriving after Close
// are discarded.
func (g *Gateway) ApplyFetch(serverNotes []models.Note, pollSeq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}

	res := reconcile.Merge(serverNotes, g.notes, reconcile.Options{
		ActiveEdits:      g.activeEdits,
		PendingCreations: g.pendingCreations,
		PendingDeletions: g.pendingDeleteSetLocked(),
		MutationSeq:      g.mutationSeq,
		PollSeq:          pollSeq,
		CreationTimeout:  g.opts.CreationTimeout,
		Now:              g.now(),
	})
	for _, id := range res.Expired {
		delete(g.pendingCreations, id)
		slog.Warn("optimistic creation timed out", "id", id)
		if g.opts.OnError != nil {
			go g.opts.OnError(fmt.Errorf("creation of %s was not confirmed", id))
		}
	}
	if !res.Changed {
		return false
	}
	g.notes = res.Notes
	return true
}

func (g *Gateway) pendingDeleteSetLocked() map[string]bool {
	if len(g.pendingDeletes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(g.pendingDeletes))
	for id := range g.pendingDeletes {
		set[id] = true
	}
	return set
}
