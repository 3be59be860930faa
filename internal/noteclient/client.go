// Package noteclient is the typed HTTP client for the notewall server.
package noteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmilloy/notewall/internal/models"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for the notewall server.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// New creates a new client.
func New(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Request types ---

// ItemInput is one checklist item in a create or update body. New items
// carry a client-generated id; the server echoes its own assignment back.
type ItemInput struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content"`
	Checked bool    `json:"checked"`
	Order   float64 `json:"order"`
}

// NoteCreate is the body for POST /v1/boards/{id}/notes.
type NoteCreate struct {
	Color models.Color `json:"color,omitempty"`
	Items []ItemInput  `json:"checklist_items,omitempty"`
}

// NoteUpdate is the body for PUT /v1/boards/{id}/notes/{noteID}.
// Nil fields are omitted and left untouched by the server; a non-nil Items
// slice is a full checklist rewrite.
type NoteUpdate struct {
	Color      *models.Color `json:"color,omitempty"`
	ArchivedAt *time.Time    `json:"archived_at,omitempty"`
	Unarchive  bool          `json:"unarchive,omitempty"`
	Items      []ItemInput   `json:"checklist_items,omitempty"`
}

// ValidationError reports a request body that failed boundary validation
// before any network traffic.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks a create body against the request schema.
func (r *NoteCreate) Validate() error {
	if r.Color != "" && !models.ValidColor(r.Color) {
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("unknown color %q", r.Color)}
	}
	return validateItems(r.Items)
}

// Validate checks an update body against the request schema.
func (r *NoteUpdate) Validate() error {
	if r.Color != nil && !models.ValidColor(*r.Color) {
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("unknown color %q", *r.Color)}
	}
	if r.ArchivedAt != nil && r.Unarchive {
		return &ValidationError{Field: "archived_at", Reason: "cannot archive and unarchive in one request"}
	}
	return validateItems(r.Items)
}

func validateItems(items []ItemInput) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ID != "" && seen[it.ID] {
			return &ValidationError{Field: fmt.Sprintf("checklist_items[%d].id", i), Reason: "duplicate id"}
		}
		seen[it.ID] = true
	}
	return nil
}

// --- Response types ---

// notesEnvelope is the body of a full notes fetch.
type notesEnvelope struct {
	Notes []models.Note `json:"notes"`
}

// FetchResult is the outcome of a conditional notes fetch. When Changed is
// false the server answered 304 and Notes is nil; the caller keeps its
// current state and skips reconciliation.
type FetchResult struct {
	Notes       []models.Note
	Fingerprint string
	Changed     bool
}

// FetchNotes retrieves the active notes for a board. A non-empty
// fingerprint is sent as If-None-Match; a 304 answer yields Changed=false
// with no body.
func (c *Client) FetchNotes(ctx context.Context, boardID, fp string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/boards/%s/notes", c.BaseURL, boardID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, false)
	if fp != "" {
		req.Header.Set("If-None-Match", fp)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &FetchResult{Fingerprint: fp, Changed: false}, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, body)
	}

	var env notesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	return &FetchResult{
		Notes:       env.Notes,
		Fingerprint: resp.Header.Get("ETag"),
		Changed:     true,
	}, nil
}

// CreateNote creates a note and returns the server's copy, including the
// assigned note and item ids.
func (c *Client) CreateNote(ctx context.Context, boardID string, body *NoteCreate) (*models.Note, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	var note models.Note
	if err := c.do(ctx, "POST", fmt.Sprintf("/v1/boards/%s/notes", boardID), body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote applies a partial update and returns the fully normalized note:
// server-assigned ids for new checklist items and integer orders.
func (c *Client) UpdateNote(ctx context.Context, boardID, noteID string, body *NoteUpdate) (*models.Note, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	var note models.Note
	if err := c.do(ctx, "PUT", fmt.Sprintf("/v1/boards/%s/notes/%s", boardID, noteID), body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote soft-deletes a note. A second delete reports ErrNotFound.
func (c *Client) DeleteNote(ctx context.Context, boardID, noteID string) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/boards/%s/notes/%s", boardID, noteID), nil, nil)
}

// ListBoards lists the boards visible to the authenticated user.
func (c *Client) ListBoards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	if err := c.do(ctx, "GET", "/v1/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// GetBoard fetches one board, including its notification settings.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*models.Board, error) {
	var board models.Board
	if err := c.do(ctx, "GET", fmt.Sprintf("/v1/boards/%s", boardID), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func classifyError(status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return &apiErr
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Notewall-Device", c.DeviceID)
	}
}

// do executes an authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, body != nil)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return classifyError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
