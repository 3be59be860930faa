// Package reconcile folds freshly fetched server state into the local note
// collection without clobbering in-progress edits or pending optimistic
// changes.
package reconcile

import (
	"reflect"
	"time"

	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/order"
)

// DefaultCreationTimeout bounds how long an optimistic placeholder survives
// without server confirmation before it is treated as failed.
const DefaultCreationTimeout = 15 * time.Second

// Options carries the mutation-tracking state the merge consults. All maps
// may be nil.
type Options struct {
	// ActiveEdits holds note and checklist item ids currently being typed
	// into. Their local content is kept verbatim.
	ActiveEdits map[string]bool

	// PendingCreations maps optimistic temp ids to the time the placeholder
	// was inserted. Placeholders survive until confirmed or timed out.
	PendingCreations map[string]time.Time

	// PendingDeletions holds ids deleted locally whose request is still in
	// flight (or inside the undo grace window). The merge must not
	// resurrect them from a pre-deletion poll snapshot.
	PendingDeletions map[string]bool

	// MutationSeq maps entity ids to the local sequence stamp of their
	// latest optimistic mutation. Entities whose stamp is later than
	// PollSeq keep their local state: the poll snapshot predates the
	// mutation and must not regress the UI.
	MutationSeq map[string]uint64

	// PollSeq is the store sequence observed when the poll fetch began.
	PollSeq uint64

	// CreationTimeout overrides DefaultCreationTimeout when positive.
	CreationTimeout time.Duration

	// Now overrides the clock for tests.
	Now time.Time
}

// Result is the outcome of a merge.
type Result struct {
	// Notes is the merged collection, a fresh value safe to install
	// atomically.
	Notes []models.Note

	// Expired lists optimistic temp ids dropped after CreationTimeout.
	Expired []string

	// Changed reports whether Notes differs from the local input. When
	// false the caller can skip re-rendering entirely.
	Changed bool
}

// Merge combines authoritative server state with the local collection.
// Local rows under active edit or covered by a pending mutation win;
// everything else adopts the server's version, including remote additions
// and removals.
func Merge(server, local []models.Note, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	timeout := opts.CreationTimeout
	if timeout <= 0 {
		timeout = DefaultCreationTimeout
	}

	serverByID := make(map[string]models.Note, len(server))
	for _, n := range server {
		serverByID[n.ID] = n
	}
	localIDs := make(map[string]bool, len(local))
	for _, n := range local {
		localIDs[n.ID] = true
	}

	var result Result
	merged := make([]models.Note, 0, len(server)+len(local))

	for _, ln := range local {
		if opts.PendingDeletions[ln.ID] {
			continue
		}
		if created, pending := opts.PendingCreations[ln.ID]; pending {
			if now.Sub(created) > timeout {
				result.Expired = append(result.Expired, ln.ID)
				continue
			}
			merged = append(merged, ln.Clone())
			continue
		}
		sn, ok := serverByID[ln.ID]
		if !ok {
			// Another session deleted or archived it.
			continue
		}
		if opts.MutationSeq[ln.ID] > opts.PollSeq {
			// The poll snapshot predates an optimistic mutation.
			merged = append(merged, ln.Clone())
			continue
		}
		merged = append(merged, mergeNote(sn, ln, opts))
	}

	// Notes created by another session.
	for _, sn := range server {
		if localIDs[sn.ID] || opts.PendingDeletions[sn.ID] {
			continue
		}
		merged = append(merged, sn.Clone())
	}

	for i := range merged {
		if !order.IsNormalized(merged[i].Items) {
			merged[i].Items = order.Resequence(merged[i].Items)
		}
	}

	result.Notes = merged
	result.Changed = !notesEqual(merged, local)
	return result
}

func notesEqual(a, b []models.Note) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// mergeNote adopts the server note but keeps any item under active edit
// verbatim, and retains local-only items still covered by a pending
// mutation.
func mergeNote(sn, ln models.Note, opts Options) models.Note {
	out := sn.Clone()

	if opts.ActiveEdits[ln.ID] {
		// The whole note is open in an editor: its items stay local.
		out.Items = make([]models.ChecklistItem, len(ln.Items))
		copy(out.Items, ln.Items)
		return out
	}

	localItems := make(map[string]models.ChecklistItem, len(ln.Items))
	for _, it := range ln.Items {
		localItems[it.ID] = it
	}
	serverItems := make(map[string]bool, len(sn.Items))

	items := make([]models.ChecklistItem, 0, len(sn.Items)+len(ln.Items))
	for _, it := range sn.Items {
		serverItems[it.ID] = true
		if lit, ok := localItems[it.ID]; ok && opts.ActiveEdits[it.ID] {
			items = append(items, lit)
			continue
		}
		items = append(items, it)
	}
	for _, it := range ln.Items {
		if serverItems[it.ID] {
			continue
		}
		_, pendingCreate := opts.PendingCreations[it.ID]
		if pendingCreate || opts.ActiveEdits[it.ID] || opts.MutationSeq[it.ID] > opts.PollSeq {
			items = append(items, it)
		}
	}

	out.Items = items
	return out
}
