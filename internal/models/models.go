package models

import (
	"time"
)

// Color represents a note's display color
type Color string

const (
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
)

// DefaultColor is used when a note is created without an explicit color
const DefaultColor = ColorYellow

// ValidColor reports whether c is one of the supported note colors
func ValidColor(c Color) bool {
	switch c {
	case ColorYellow, ColorPink, ColorBlue, ColorGreen, ColorOrange, ColorPurple:
		return true
	}
	return false
}

// ChecklistItem is a single line within a note's checklist.
// Order is numeric but not necessarily integer between normalizations:
// an optimistic split assigns the midpoint of its neighbors and the next
// full-list rewrite renumbers everything back to 0..n-1.
type ChecklistItem struct {
	ID      string  `json:"id"`
	NoteID  string  `json:"note_id,omitempty"`
	Content string  `json:"content"`
	Checked bool    `json:"checked"`
	Order   float64 `json:"order"`
}

// Note is a sticky note on a board
type Note struct {
	ID         string          `json:"id"`
	BoardID    string          `json:"board_id"`
	CreatedBy  string          `json:"created_by,omitempty"`
	Color      Color           `json:"color"`
	Items      []ChecklistItem `json:"checklist_items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ArchivedAt *time.Time      `json:"archived_at,omitempty"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

// Archived reports whether the note is in the archived soft state
func (n *Note) Archived() bool {
	return n.ArchivedAt != nil
}

// Item returns the checklist item with the given id, or nil
func (n *Note) Item(id string) *ChecklistItem {
	for i := range n.Items {
		if n.Items[i].ID == id {
			return &n.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the note. The local collection is replaced
// atomically as a value, so callers must never hand out aliased item slices.
func (n Note) Clone() Note {
	out := n
	if n.Items != nil {
		out.Items = make([]ChecklistItem, len(n.Items))
		copy(out.Items, n.Items)
	}
	if n.ArchivedAt != nil {
		t := *n.ArchivedAt
		out.ArchivedAt = &t
	}
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

// CloneNotes deep-copies a note collection
func CloneNotes(notes []Note) []Note {
	if notes == nil {
		return nil
	}
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// Board is a collection of notes owned by an organization
type Board struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id,omitempty"`
	Name        string     `json:"name"`
	SendUpdates bool       `json:"send_updates"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// User is a member of an organization
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Organization groups users and boards
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Invite is a pending invitation to join an organization
type Invite struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Email      string     `json:"email"`
	Token      string     `json:"token,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// ChangeKind classifies a change report for the notification side-channel
type ChangeKind string

const (
	ChangeNoteCreated   ChangeKind = "note_created"
	ChangeNoteArchived  ChangeKind = "note_archived"
	ChangeNoteRestored  ChangeKind = "note_restored"
	ChangeNoteDeleted   ChangeKind = "note_deleted"
	ChangeItemCreated   ChangeKind = "item_created"
	ChangeItemEdited    ChangeKind = "item_edited"
	ChangeItemCompleted ChangeKind = "item_completed"
	ChangeItemReopened  ChangeKind = "item_reopened"
)

// ChangeReport describes one authoritative change for outbound notification.
// The gateway emits these; debounce and suppression live in the webhook layer.
type ChangeReport struct {
	UserID    string     `json:"user_id"`
	BoardID   string     `json:"board_id"`
	NoteID    string     `json:"note_id"`
	ItemID    string     `json:"item_id,omitempty"`
	Kind      ChangeKind `json:"kind"`
	Content   string     `json:"content,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// WebhookConfig holds outbound notification settings
type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// PollConfig holds poll scheduler tuning
type PollConfig struct {
	BaseIntervalMS int `json:"base_interval_ms,omitempty"`
	MaxIntervalMS  int `json:"max_interval_ms,omitempty"`
	IdleCycles     int `json:"idle_cycles,omitempty"`
}

// Config is the on-disk client configuration
type Config struct {
	ServerURL string         `json:"server_url,omitempty"`
	APIKey    string         `json:"api_key,omitempty"`
	DeviceID  string         `json:"device_id,omitempty"`
	BoardID   string         `json:"board_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Webhook   *WebhookConfig `json:"webhook,omitempty"`
	Poll      *PollConfig    `json:"poll,omitempty"`
}
