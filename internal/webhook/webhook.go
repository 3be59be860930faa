// Package webhook posts board change notifications to an external receiver.
// Bursts are debounced per (user, board) pair; one payload carries every
// change collapsed within the window.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmilloy/notewall/internal/models"
)

// DefaultDebounceWindow collapses change bursts before dispatch.
const DefaultDebounceWindow = time.Second

// Payload is the top-level webhook POST body.
type Payload struct {
	BoardID   string          `json:"board_id"`
	UserID    string          `json:"user_id"`
	Timestamp string          `json:"timestamp"`
	Changes   []ChangePayload `json:"changes"`
}

// ChangePayload is one change report within a webhook payload.
type ChangePayload struct {
	NoteID    string `json:"note_id"`
	ItemID    string `json:"item_id,omitempty"`
	Kind      string `json:"kind"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BuildPayload converts collapsed change reports into a webhook payload.
// All reports must share one (user, board) pair.
func BuildPayload(reports []models.ChangeReport) Payload {
	p := Payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Changes:   make([]ChangePayload, len(reports)),
	}
	if len(reports) > 0 {
		p.BoardID = reports[0].BoardID
		p.UserID = reports[0].UserID
	}
	for i, r := range reports {
		p.Changes[i] = ChangePayload{
			NoteID:    r.NoteID,
			ItemID:    r.ItemID,
			Kind:      string(r.Kind),
			Content:   r.Content,
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return p
}

// Dispatch performs a synchronous HTTP POST to the webhook URL.
// Returns nil on success (2xx status).
func Dispatch(url, secret string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notewall-webhook/1")

	unixTS := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("X-Notewall-Timestamp", unixTS)

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(unixTS))
		mac.Write([]byte("."))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Notewall-Signature", "sha256="+sig)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}

type debounceKey struct {
	userID  string
	boardID string
}

// Notifier debounces change reports and dispatches collapsed payloads.
// A Notifier with an empty URL, or one whose board has updates disabled,
// drops every report.
type Notifier struct {
	url    string
	secret string
	window time.Duration

	mu       sync.Mutex
	disabled bool
	pending  map[debounceKey][]models.ChangeReport
	timers   map[debounceKey]*time.Timer

	// dispatch is replaceable in tests.
	dispatch func(url, secret string, payload Payload) error
}

// NewNotifier creates a notifier. A zero window takes DefaultDebounceWindow.
func NewNotifier(url, secret string, window time.Duration) *Notifier {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Notifier{
		url:      url,
		secret:   secret,
		window:   window,
		pending:  make(map[debounceKey][]models.ChangeReport),
		timers:   make(map[debounceKey]*time.Timer),
		dispatch: Dispatch,
	}
}

// SetDisabled reflects the board's send_updates setting.
func (n *Notifier) SetDisabled(disabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = disabled
}

// Report queues a change. The first report for a (user, board) pair starts
// the debounce window; later reports within the window join the same batch.
func (n *Notifier) Report(r models.ChangeReport) {
	if n == nil || n.url == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disabled {
		return
	}
	k := debounceKey{userID: r.UserID, boardID: r.BoardID}
	n.pending[k] = append(n.pending[k], r)
	if _, armed := n.timers[k]; !armed {
		n.timers[k] = time.AfterFunc(n.window, func() { n.fire(k) })
	}
}

func (n *Notifier) fire(k debounceKey) {
	n.mu.Lock()
	batch := n.pending[k]
	delete(n.pending, k)
	delete(n.timers, k)
	url, secret := n.url, n.secret
	n.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := n.dispatch(url, secret, BuildPayload(batch)); err != nil {
		slog.Warn("webhook dispatch failed", "board", k.boardID, "changes", len(batch), "err", err)
	}
}

// Flush dispatches every pending batch immediately. Used on shutdown so a
// short-lived CLI invocation does not exit before its window elapses.
func (n *Notifier) Flush() {
	if n == nil {
		return
	}
	n.mu.Lock()
	for _, timer := range n.timers {
		timer.Stop()
	}
	keys := make([]debounceKey, 0, len(n.pending))
	for k := range n.pending {
		keys = append(keys, k)
	}
	n.mu.Unlock()

	for _, k := range keys {
		n.fire(k)
	}
}
