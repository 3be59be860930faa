// Package board wires one board view session together: the API client,
// the optimistic gateway, the fingerprint cache, and the on-disk snapshot
// cache. All poll state lives in the session value, never in globals, so
// two open boards cannot cross-contaminate.
package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmilloy/notewall/internal/cache"
	"github.com/jmilloy/notewall/internal/fingerprint"
	"github.com/jmilloy/notewall/internal/gateway"
	"github.com/jmilloy/notewall/internal/noteclient"
)

// Session is the sync state for one open board view.
type Session struct {
	BoardID string

	client       *noteclient.Client
	gw           *gateway.Gateway
	fingerprints *fingerprint.Cache
	snapshots    *cache.DB // optional
}

// NewSession creates a session. snapshots may be nil when persistence is
// unavailable.
func NewSession(client *noteclient.Client, gw *gateway.Gateway, boardID string, snapshots *cache.DB) *Session {
	return &Session{
		BoardID:      boardID,
		client:       client,
		gw:           gw,
		fingerprints: fingerprint.New(),
		snapshots:    snapshots,
	}
}

// Gateway returns the session's mutation gateway.
func (s *Session) Gateway() *gateway.Gateway {
	return s.gw
}

// Bootstrap seeds local state. A cached snapshot (when present) renders
// immediately and primes the fingerprint so even the first poll can be
// conditional; the initial fetch then reconciles on top.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.snapshots != nil {
		snap, err := s.snapshots.LoadSnapshot(s.BoardID)
		if err != nil {
			slog.Warn("load snapshot", "board", s.BoardID, "err", err)
		} else if snap != nil {
			s.gw.Seed(snap.Notes)
			s.fingerprints.Set(s.BoardID, snap.Fingerprint)
		}
	}

	if _, err := s.Fetch(ctx); err != nil {
		// A cached snapshot makes a failed initial fetch survivable; the
		// poll loop keeps retrying.
		if s.fingerprints.Get(s.BoardID) != "" {
			slog.Warn("initial fetch failed, serving cached snapshot", "board", s.BoardID, "err", err)
			return nil
		}
		return fmt.Errorf("initial fetch: %w", err)
	}
	return nil
}

// Fetch runs one poll cycle: conditional request, fingerprint update,
// reconciliation. It satisfies poll.FetchFunc. An unchanged fingerprint
// short-circuits before any merge work.
func (s *Session) Fetch(ctx context.Context) (bool, error) {
	pollSeq := s.gw.BeginPoll()

	res, err := s.client.FetchNotes(ctx, s.BoardID, s.fingerprints.Get(s.BoardID))
	if err != nil {
		return false, err
	}
	if !res.Changed {
		return false, nil
	}

	s.fingerprints.Set(s.BoardID, res.Fingerprint)
	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(s.BoardID, res.Fingerprint, res.Notes); err != nil {
			slog.Warn("save snapshot", "board", s.BoardID, "err", err)
		}
	}

	return s.gw.ApplyFetch(res.Notes, pollSeq), nil
}

// Close tears the session down. In-flight requests may still complete but
// their results are discarded.
func (s *Session) Close(ctx context.Context) {
	s.gw.Close(ctx)
}
