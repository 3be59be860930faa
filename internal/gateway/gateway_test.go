package gateway

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/noteclient"
)

// fakeAPI records calls and lets tests inject failures and server echoes.
type fakeAPI struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	deleteErr error
	deletes   []string
	updates   []*noteclient.NoteUpdate
	updateFn  func(noteID string, body *noteclient.NoteUpdate) *models.Note
}

func (f *fakeAPI) CreateNote(ctx context.Context, boardID string, body *noteclient.NoteCreate) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	note := &models.Note{ID: "real-9", BoardID: boardID, Color: body.Color}
	for i, it := range body.Items {
		note.Items = append(note.Items, models.ChecklistItem{
			ID: fmt.Sprintf("ci-%d", i+1), Content: it.Content, Checked: it.Checked, Order: float64(i),
		})
	}
	return note, nil
}

func (f *fakeAPI) UpdateNote(ctx context.Context, boardID, noteID string, body *noteclient.NoteUpdate) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, body)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateFn != nil {
		return f.updateFn(noteID, body), nil
	}
	// Echo the request verbatim.
	note := &models.Note{ID: noteID, BoardID: boardID}
	if body.Color != nil {
		note.Color = *body.Color
	}
	if body.ArchivedAt != nil {
		t := *body.ArchivedAt
		note.ArchivedAt = &t
	}
	for _, it := range body.Items {
		note.Items = append(note.Items, models.ChecklistItem{
			ID: it.ID, Content: it.Content, Checked: it.Checked, Order: it.Order,
		})
	}
	return note, nil
}

func (f *fakeAPI) DeleteNote(ctx context.Context, boardID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, noteID)
	return f.deleteErr
}

func (f *fakeAPI) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

func (f *fakeAPI) lastUpdate() *noteclient.NoteUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1]
}

func (f *fakeAPI) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// recordingReporter captures change reports for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	reports []models.ChangeReport
}

func (r *recordingReporter) Report(cr models.ChangeReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, cr)
}

func (r *recordingReporter) all() []models.ChangeReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChangeReport(nil), r.reports...)
}

func seeded(t *testing.T, api API, notes ...models.Note) *Gateway {
	t.Helper()
	g := New(api, "bd-1", "usr-1", Options{GraceWindow: -1})
	g.Seed(notes)
	return g
}

func twoItemNote() models.Note {
	return models.Note{
		ID: "nt-1", BoardID: "bd-1", Color: models.ColorYellow,
		Items: []models.ChecklistItem{
			{ID: "ci-a", Content: "alpha beta", Order: 0},
			{ID: "ci-b", Content: "B", Order: 1},
		},
	}
}

func TestCreatePromotesTempID(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api)

	note, err := g.CreateNote(context.Background(), models.ColorBlue, []string{"hello"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.ID != "real-9" {
		t.Fatalf("server id = %q", note.ID)
	}

	notes := g.Notes()
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
	if notes[0].ID != "real-9" {
		t.Fatalf("local id = %q, want real-9", notes[0].ID)
	}
	for _, n := range notes {
		if strings.HasPrefix(n.ID, "tmp-") {
			t.Fatalf("tmp remnant left behind: %q", n.ID)
		}
	}
}

func TestCreateRollbackOnFailure(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("boom")}
	before := twoItemNote()
	g := seeded(t, api, before)

	_, err := g.CreateNote(context.Background(), models.ColorBlue, []string{"hello"})
	if err == nil {
		t.Fatal("create succeeded, want error")
	}

	after := g.Notes()
	if !reflect.DeepEqual(after, []models.Note{before}) {
		t.Fatalf("state after rollback differs:\n got %+v\nwant %+v", after, before)
	}
}

func TestToggleRollbackOnFailure(t *testing.T) {
	api := &fakeAPI{updateErr: errors.New("network down")}
	before := twoItemNote()
	g := seeded(t, api, before)

	_, err := g.SetItemChecked(context.Background(), "nt-1", "ci-a", true)
	if err == nil {
		t.Fatal("toggle succeeded, want error")
	}

	after := g.Notes()
	if !reflect.DeepEqual(after, []models.Note{before}) {
		t.Fatalf("rollback mismatch:\n got %+v\nwant %+v", after[0], before)
	}
}

func TestToggleAdoptsServerEcho(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api, twoItemNote())

	note, err := g.SetItemChecked(context.Background(), "nt-1", "ci-a", true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !note.Item("ci-a").Checked {
		t.Fatal("echo not checked")
	}
	if got := g.Notes()[0].Item("ci-a"); !got.Checked {
		t.Fatal("local state not updated from echo")
	}
}

func TestSplitMidpointThenNormalize(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api, twoItemNote())

	// Split "alpha beta" at its midpoint.
	_, err := g.SplitItem(context.Background(), "nt-1", "ci-a", 5)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	items := g.Notes()[0].Items
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Content != "alpha" || items[0].Order != 0 {
		t.Fatalf("original after split = %+v", items[0])
	}
	if items[1].Content != " beta" {
		t.Fatalf("new item content = %q", items[1].Content)
	}
	if items[1].Order <= 0 || items[1].Order >= 1 {
		t.Fatalf("new item order = %v, want strictly between 0 and 1", items[1].Order)
	}
	if items[2].Order != 1 {
		t.Fatalf("successor order changed: %v", items[2].Order)
	}
	// The split request itself defers renormalization.
	if upd := api.lastUpdate(); upd.Items[1].Order == 1 {
		t.Fatalf("split request renormalized early: %+v", upd.Items)
	}

	// The next full-list rewrite renumbers to 0..n-1.
	if _, err := g.SetColor(context.Background(), "nt-1", models.ColorGreen); err != nil {
		t.Fatalf("set color: %v", err)
	}
	for i, it := range g.Notes()[0].Items {
		if it.Order != float64(i) {
			t.Fatalf("after rewrite items[%d].Order = %v, want %d", i, it.Order, i)
		}
	}
}

func TestSplitCursorCountsRunes(t *testing.T) {
	api := &fakeAPI{}
	note := models.Note{
		ID: "nt-1", BoardID: "bd-1", Color: models.ColorYellow,
		Items: []models.ChecklistItem{{ID: "ci-a", Content: "ééé", Order: 0}},
	}
	g := seeded(t, api, note)

	// Cursor after the second character, as an editor caret reports it.
	if _, err := g.SplitItem(context.Background(), "nt-1", "ci-a", 2); err != nil {
		t.Fatalf("split: %v", err)
	}

	items := g.Notes()[0].Items
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Content != "éé" || items[1].Content != "é" {
		t.Fatalf("split halves = %q / %q, want éé / é", items[0].Content, items[1].Content)
	}
	for i, it := range items {
		if !utf8.ValidString(it.Content) {
			t.Fatalf("items[%d] is not valid UTF-8: %q", i, it.Content)
		}
	}

	// One past the last character is the end; beyond that is out of range.
	if _, err := g.SplitItem(context.Background(), "nt-1", items[0].ID, 4); err == nil {
		t.Fatal("cursor past rune count accepted")
	}
}

func TestReportDeliveredBeforeMutationReturns(t *testing.T) {
	api := &fakeAPI{}
	rec := &recordingReporter{}
	g := New(api, "bd-1", "usr-1", Options{GraceWindow: -1, Reporter: rec})
	g.Seed([]models.Note{twoItemNote()})

	if _, err := g.SetItemChecked(context.Background(), "nt-1", "ci-a", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// No sleep: the report must already be with the reporter, or a caller
	// flushing on exit would drop it.
	reports := rec.all()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1 immediately after the mutation", len(reports))
	}
	r := reports[0]
	if r.Kind != models.ChangeItemCompleted || r.NoteID != "nt-1" || r.ItemID != "ci-a" {
		t.Fatalf("report = %+v", r)
	}
	if r.UserID != "usr-1" || r.BoardID != "bd-1" {
		t.Fatalf("report missing user/board stamps: %+v", r)
	}
}

func TestNoopMutationSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	archivedAt := time.Now()
	note := twoItemNote()
	note.ArchivedAt = &archivedAt
	g := seeded(t, api, note)

	got, err := g.Archive(context.Background(), "nt-1")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if got == nil || got.ArchivedAt == nil {
		t.Fatalf("archive of archived note returned %+v", got)
	}
	if n := api.updateCount(); n != 0 {
		t.Fatalf("no-op archive issued %d update requests", n)
	}

	// Same for unarchiving a note that is already active.
	g.Seed([]models.Note{twoItemNote()})
	if _, err := g.Unarchive(context.Background(), "nt-1"); err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	if n := api.updateCount(); n != 0 {
		t.Fatalf("no-op unarchive issued %d update requests", n)
	}
}

func TestDeleteWithUndo(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, "bd-1", "usr-1", Options{GraceWindow: time.Hour})
	before := twoItemNote()
	g.Seed([]models.Note{before})

	if err := g.DeleteNote(context.Background(), "nt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(g.Notes()) != 0 {
		t.Fatal("note still visible after optimistic delete")
	}

	if !g.Undo("nt-1") {
		t.Fatal("undo inside grace window failed")
	}
	if got := g.Notes(); !reflect.DeepEqual(got, []models.Note{before}) {
		t.Fatalf("restored note differs: %+v", got)
	}
	if len(api.deleted()) != 0 {
		t.Fatalf("delete request fired despite undo: %v", api.deleted())
	}
}

func TestDeleteCommitsAfterGrace(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, "bd-1", "usr-1", Options{GraceWindow: 10 * time.Millisecond})
	g.Seed([]models.Note{twoItemNote()})

	if err := g.DeleteNote(context.Background(), "nt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(api.deleted()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("delete request never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if g.Undo("nt-1") {
		t.Fatal("undo succeeded after commit")
	}
}

func TestDeleteDoubleDeleteIsNotAnError(t *testing.T) {
	api := &fakeAPI{deleteErr: fmt.Errorf("%w: gone", noteclient.ErrNotFound)}
	g := seeded(t, api, twoItemNote())

	if err := g.DeleteNote(context.Background(), "nt-1"); err != nil {
		t.Fatalf("delete of already-deleted note errored: %v", err)
	}
	if len(g.Notes()) != 0 {
		t.Fatal("note resurrected after not-found delete")
	}
}

func TestApplyFetchDiscardedAfterClose(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api, twoItemNote())
	g.Close(context.Background())

	changed := g.ApplyFetch([]models.Note{}, g.BeginPoll())
	if changed {
		t.Fatal("fetch applied to closed view")
	}
	if len(g.Notes()) != 1 {
		t.Fatal("closed view state mutated")
	}
}

func TestStalePollGatedBySequence(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api, twoItemNote())

	// Poll snapshot taken before the mutation.
	pollSeq := g.BeginPoll()
	if _, err := g.SetItemChecked(context.Background(), "nt-1", "ci-a", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// The poll returns pre-mutation data.
	stale := twoItemNote()
	g.ApplyFetch([]models.Note{stale}, pollSeq)

	if !g.Notes()[0].Item("ci-a").Checked {
		t.Fatal("stale poll regressed the optimistic toggle")
	}
}

func TestActiveEditSurvivesFetch(t *testing.T) {
	api := &fakeAPI{}
	g := seeded(t, api, twoItemNote())

	g.BeginEdit("ci-a")
	server := twoItemNote()
	server.Items[0].Content = "overwritten remotely"

	g.ApplyFetch([]models.Note{server}, g.BeginPoll())

	if got := g.Notes()[0].Item("ci-a").Content; got != "alpha beta" {
		t.Fatalf("active edit clobbered: %q", got)
	}

	g.EndEdit("ci-a")
	g.ApplyFetch([]models.Note{server}, g.BeginPoll())
	if got := g.Notes()[0].Item("ci-a").Content; got != "overwritten remotely" {
		t.Fatalf("server content not adopted after edit ended: %q", got)
	}
}
