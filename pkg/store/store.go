// Package store keeps analysis sessions in memory with sliding expiry and
// bounded conversation history.
//
// Invariants:
// - A session is only visible to Get after all three artifacts are committed.
// - History never exceeds the configured cap; the oldest entries are evicted
//   first.
// - Expiry slides: every read or write refreshes the last-accessed time.
package store

import (
	"context"
	"time"

	"github.com/labelsense/labelsense/pkg/analysis"
)

// History entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one conversation turn recorded on a session.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session binds one analysis run to its follow-up conversation. Artifacts
// are immutable once the session exists; only History and LastAccessedAt
// change afterwards.
type Session struct {
	ID             string             `json:"id"`
	Artifacts      analysis.Artifacts `json:"artifacts"`
	History        []HistoryEntry     `json:"history"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
}

// Store is the session persistence boundary. An alternative backing (for
// example a networked key-value store) can be substituted without touching
// pipeline logic.
type Store interface {
	// Create mints a fresh session around already-resolved artifacts. It
	// always succeeds for a live store.
	Create(ctx context.Context, artifacts analysis.Artifacts) (*Session, error)

	// Get returns the session and true, or nil and false for unknown or
	// expired ids. A hit refreshes the expiry clock.
	Get(ctx context.Context, id string) (*Session, bool)

	// AppendHistory records one conversation turn, enforcing the history
	// cap by evicting the oldest entries. Returns nil and false for
	// unknown or expired ids.
	AppendHistory(ctx context.Context, id, role, content string) (*Session, bool)

	// Delete removes a session, reporting whether it existed.
	Delete(ctx context.Context, id string) bool

	// Sweep removes all sessions idle beyond the TTL and returns how many
	// were removed.
	Sweep(ctx context.Context) int

	// Len returns the number of live sessions.
	Len() int

	// Close releases store resources.
	Close() error
}
