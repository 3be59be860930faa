package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmilloy/notewall/internal/gateway"
	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/noteclient"
)

// notesServer serves a fixed collection under a fixed ETag and records the
// conditional headers it saw.
type notesServer struct {
	etag     string
	notes    []models.Note
	requests []string // If-None-Match values, in order
}

func (s *notesServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/notes") {
			http.NotFound(w, r)
			return
		}
		s.requests = append(s.requests, r.Header.Get("If-None-Match"))
		if r.Header.Get("If-None-Match") == s.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", s.etag)
		json.NewEncoder(w).Encode(map[string]any{"notes": s.notes})
	}
}

func newTestSession(t *testing.T, srv *notesServer) *Session {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	client := noteclient.New(ts.URL, "key", "dev-test")
	gw := gateway.New(client, "bd-1", "us-1", gateway.Options{GraceWindow: -1})
	return NewSession(client, gw, "bd-1", nil)
}

func TestFetchAppliesServerNotes(t *testing.T) {
	srv := &notesServer{
		etag:  `"v1"`,
		notes: []models.Note{{ID: "nt-1", BoardID: "bd-1", Color: models.ColorYellow}},
	}
	sess := newTestSession(t, srv)

	changed, err := sess.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !changed {
		t.Fatal("first fetch reported no change")
	}
	notes := sess.Gateway().Notes()
	if len(notes) != 1 || notes[0].ID != "nt-1" {
		t.Fatalf("notes after fetch: %+v", notes)
	}
}

func TestUnchangedFingerprintShortCircuits(t *testing.T) {
	srv := &notesServer{etag: `"v1"`, notes: []models.Note{{ID: "nt-1"}}}
	sess := newTestSession(t, srv)

	if _, err := sess.Fetch(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	changed, err := sess.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if changed {
		t.Fatal("304 answer reported a change")
	}
	if len(srv.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(srv.requests))
	}
	if srv.requests[0] != "" {
		t.Fatalf("first request carried If-None-Match %q", srv.requests[0])
	}
	if srv.requests[1] != `"v1"` {
		t.Fatalf("second request If-None-Match = %q, want cached fingerprint", srv.requests[1])
	}
}

func TestBootstrapFailsWithoutCacheOrServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"internal"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	client := noteclient.New(ts.URL, "key", "dev-test")
	gw := gateway.New(client, "bd-1", "us-1", gateway.Options{})
	sess := NewSession(client, gw, "bd-1", nil)

	if err := sess.Bootstrap(context.Background()); err == nil {
		t.Fatal("bootstrap succeeded with no cache and a failing server")
	}
}
