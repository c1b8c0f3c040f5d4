package memory

import (
	"encoding/json"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Kinds and defaults
// ─────────────────────────────────────────────────────────────────────────────

// ValidKinds is the set of recognised memory-item kinds. A write carrying any
// other kind is coerced to "note" rather than rejected.
var ValidKinds = map[string]bool{
	"answer":   true,
	"decision": true,
	"pattern":  true,
	"command":  true,
	"note":     true,
}

// NormalizeKind trims and lowercases kind, coercing anything outside
// [ValidKinds] to "note".
func NormalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if !ValidKinds[kind] {
		return "note"
	}
	return kind
}

const (
	// DefaultImportance is stored when a write does not supply an
	// importance value.
	DefaultImportance = 50

	// DefaultSource is stored when a write does not say who authored it.
	DefaultSource = "agent"
)

// Write actions reported by [Store.WriteMemory].
const (
	// ActionCreated means the write inserted a new item.
	ActionCreated = "created"

	// ActionUpdated means the write replaced an existing item's body.
	ActionUpdated = "updated"
)

// ─────────────────────────────────────────────────────────────────────────────
// Raw store records
// ─────────────────────────────────────────────────────────────────────────────

// ItemRecord is a raw memory-item row as a store query returns it, before any
// content shaping. The formatting helpers in this package turn records into
// the wire-level payload types below.
type ItemRecord struct {
	// ID is the store-assigned opaque identifier.
	ID string

	// Kind is the item's semantic class, one of [ValidKinds].
	Kind string

	Title          string
	Content        string
	ContentCompact string

	// Tags is the item's tag set in store order. May be nil when the item
	// has no tags.
	Tags []string

	// Pinned is only populated by read and search queries; bootstrap
	// queries select on it instead of returning it.
	Pinned bool

	// UpdatedAt and CreatedAt are RFC 3339 UTC timestamps. CreatedAt is
	// only populated by reads.
	UpdatedAt string
	CreatedAt string

	// Importance is the stored ranking weight in [0,100].
	Importance int

	// WorkspaceHint is the workspace the item was written under, or empty
	// when unscoped.
	WorkspaceHint string

	// Source is only populated by reads.
	Source string
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire-level payloads
// ─────────────────────────────────────────────────────────────────────────────

// WriteResult reports the outcome of a memory write.
type WriteResult struct {
	OK bool `json:"ok"`

	// Action is [ActionCreated] or [ActionUpdated].
	Action string `json:"action"`

	// ID is the store-assigned id of the written item.
	ID string `json:"id"`
}

// Item is the full read payload for a single memory item. Content carries the
// preferred form; ContentCompact and ContentFull are always echoed alongside
// so the caller can switch without a second read.
type Item struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`

	ContentCompact string `json:"content_compact"`
	ContentFull    string `json:"content_full"`

	// Tags is a JSON-encoded array of strings. The double encoding is part
	// of the wire contract.
	Tags string `json:"tags"`

	// Pinned is 1 or 0 on the wire.
	Pinned int `json:"pinned"`

	UpdatedAt     string `json:"updated_at"`
	CreatedAt     string `json:"created_at"`
	Importance    int    `json:"importance"`
	WorkspaceHint string `json:"workspace_hint"`
	Source        string `json:"source"`
}

// SearchResult is one search hit with its content shaped per the caller's
// preference.
type SearchResult struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`

	// Tags is a JSON-encoded array of strings.
	Tags string `json:"tags"`

	// Pinned is 1 or 0 on the wire.
	Pinned int `json:"pinned"`

	UpdatedAt string `json:"updated_at"`

	// HasFull reports that Content is a strict reduction of the stored
	// body, so a follow-up read can return more.
	HasFull bool `json:"has_full"`
}

// BootstrapItem is one entry of a bootstrap snapshot.
type BootstrapItem struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`

	// Tags is a JSON-encoded array of strings.
	Tags string `json:"tags"`

	UpdatedAt string `json:"updated_at"`

	// HasFull reports that Content is a strict reduction of the stored
	// body, so a follow-up read can return more.
	HasFull bool `json:"has_full"`
}

// Session is a committed point-in-time record of what happened in a
// workspace.
type Session struct {
	ID            string `json:"id"`
	CreatedAt     string `json:"created_at"`
	WorkspaceHint string `json:"workspace_hint"`
	Summary       string `json:"summary"`

	// Decisions and NextSteps are materialised back from their stored
	// JSON-encoded form. Never nil.
	Decisions []string `json:"decisions"`
	NextSteps []string `json:"next_steps"`
}

// BootstrapResult is the context snapshot an agent loads at session start:
// pinned items first, then budget-ranked recent items.
type BootstrapResult struct {
	Pinned []BootstrapItem
	Recent []BootstrapItem

	// LastSession is the newest session of the requested workspace. Nil
	// when sessions were not requested or none exist; SessionsIncluded
	// disambiguates the two on the wire.
	LastSession *Session

	// SessionsIncluded mirrors the caller's include_sessions flag. When
	// set, the JSON form carries a last_session key even if its value is
	// null; when unset the key is absent so pre-session callers keep the
	// two-key shape.
	SessionsIncluded bool
}

// MarshalJSON emits the pinned and recent lists as empty arrays rather than
// null, and the last_session key only when sessions were requested.
func (r BootstrapResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Pinned      []BootstrapItem `json:"pinned"`
		Recent      []BootstrapItem `json:"recent"`
		LastSession **Session       `json:"last_session,omitempty"`
	}{
		Pinned: r.Pinned,
		Recent: r.Recent,
	}
	if out.Pinned == nil {
		out.Pinned = []BootstrapItem{}
	}
	if out.Recent == nil {
		out.Recent = []BootstrapItem{}
	}
	if r.SessionsIncluded {
		out.LastSession = &r.LastSession
	}
	return json.Marshal(out)
}
