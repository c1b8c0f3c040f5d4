// Package memory defines the persistent memory model of Mnemosyne.
//
// Agents write semi-structured memory items — decisions, patterns, commands,
// answers, notes — and session summaries while they work, and later sessions
// retrieve them to reconstruct context. This package holds everything that is
// backend-independent:
//
//   - the [Store] interface every storage backend implements,
//   - the raw record and wire-level payload types,
//   - tenant space resolution ([ResolveSpace]),
//   - the pure ranking/budgeting half of bootstrap ([AssembleBootstrap]) and
//     the result shaping helpers, shared so every backend applies an
//     identical retrieval policy.
//
// Content shaping itself (compact snippets, recency decay, scoring, token
// estimation) lives in the shape subpackage. The Neo4j backend lives in the
// neo4j subpackage; a configurable fake lives in mock.
//
// Every implementation must be safe for concurrent use.
package memory

import (
	"context"
	"strings"

	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// ─────────────────────────────────────────────────────────────────────────────
// Operation parameters
// ─────────────────────────────────────────────────────────────────────────────

// WriteParams carries the inputs of [Store.WriteMemory]. Kind, Title and
// Content are the caller's responsibility; every other field has a documented
// default. Pass params through [WriteParams.Normalized] before persisting.
type WriteParams struct {
	// Kind classifies the item. Values outside [ValidKinds] are coerced to
	// "note".
	Kind string

	// Title is, together with Kind (and the tenant space in multi-tenant
	// mode), the item's dedup key. Writing the same key again updates the
	// existing item in place.
	Title string

	// Content is the full body.
	Content string

	// Tags is the exact tag set the item carries after this write; tags
	// from earlier writes that are missing here are removed. Entries are
	// trimmed and empties dropped.
	Tags []string

	// Pinned marks the item as always-relevant for bootstrap.
	Pinned bool

	// ContentCompact overrides the stored compact snippet. Nil derives one
	// from Content; a pointer to a string stores that string as given
	// (trimmed).
	ContentCompact *string

	// WorkspaceHint scopes the item to a workspace for retrieval boosts.
	// Empty means unscoped.
	WorkspaceHint string

	// Importance weighs the item during ranking, clamped to [0,100].
	// Nil defaults to [DefaultImportance].
	Importance *int

	// Source records who authored the item. Empty defaults to
	// [DefaultSource].
	Source string

	// Caller carries the tenant hints of the requesting agent.
	Caller *RequestContext
}

// Normalized returns a copy of p with every field coerced to its stored
// form: kind validated, title and content trimmed, a compact snippet derived
// when none was supplied, importance clamped with absence defaulting to 50,
// source defaulted to "agent", and tags trimmed with empties dropped.
// The copy shares no pointers with p.
func (p WriteParams) Normalized() WriteParams {
	p.Kind = NormalizeKind(p.Kind)
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)

	compact := ""
	if p.ContentCompact != nil {
		compact = strings.TrimSpace(*p.ContentCompact)
	} else {
		compact = shape.Compact(p.Content, shape.DefaultCompactChars)
	}
	p.ContentCompact = &compact

	importance := DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
	}
	importance = min(max(importance, 0), 100)
	p.Importance = &importance

	p.Source = strings.TrimSpace(p.Source)
	if p.Source == "" {
		p.Source = DefaultSource
	}
	p.WorkspaceHint = strings.TrimSpace(p.WorkspaceHint)

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	p.Tags = tags

	return p
}

// SearchParams carries the inputs of [Store.SearchMemory].
type SearchParams struct {
	// Query is the full-text search string. Empty or whitespace-only
	// queries match nothing.
	Query string

	// Limit caps the number of results, clamped to [1,25].
	Limit int

	// Prefer selects the content form of each result. Anything but
	// [shape.PreferCompact] behaves as full.
	Prefer shape.Prefer

	// SnippetChars bounds auto-generated snippets when Prefer is compact
	// and an item has no stored compact form. Non-positive falls back to
	// [shape.DefaultCompactChars].
	SnippetChars int

	// Caller carries the tenant hints of the requesting agent.
	Caller *RequestContext
}

// BootstrapParams carries the inputs of [Store.Bootstrap].
type BootstrapParams struct {
	// LimitPinned caps the pinned fetch, clamped to [0,25].
	LimitPinned int

	// LimitRecent caps the recent result count, clamped to [0,50]. Stores
	// over-fetch beyond this so ranking has headroom.
	LimitRecent int

	// WorkspaceHint boosts matching items and selects the session chain.
	// Empty defaults to "global".
	WorkspaceHint string

	// Mode selects how much content each item carries. Unrecognised modes
	// behave like [shape.ModeThin].
	Mode shape.Mode

	// MaxTokens caps the estimated token budget of the recent set.
	// Non-positive disables the budget. Pinned items are exempt.
	MaxTokens int

	// MaxItems caps the total emitted item count across pinned and recent,
	// clamped to [1,50].
	MaxItems int

	// IncludeSessions attaches the workspace's most recent session to the
	// result.
	IncludeSessions bool

	// Caller carries the tenant hints of the requesting agent.
	Caller *RequestContext
}

// Normalized returns a copy of p with the limits clamped to their documented
// ranges and an empty workspace hint replaced by "global".
func (p BootstrapParams) Normalized() BootstrapParams {
	p.LimitPinned = min(max(p.LimitPinned, 0), 25)
	p.LimitRecent = min(max(p.LimitRecent, 0), 50)
	p.MaxItems = min(max(p.MaxItems, 1), 50)
	p.WorkspaceHint = strings.TrimSpace(p.WorkspaceHint)
	if p.WorkspaceHint == "" {
		p.WorkspaceHint = "global"
	}
	return p
}

// CommitParams carries the inputs of [Store.CommitSession].
type CommitParams struct {
	// WorkspaceHint names the workspace the session belongs to. Empty
	// defaults to "global".
	WorkspaceHint string

	// Summary is the human-readable record of what happened.
	Summary string

	// Decisions lists the decisions made, in order.
	Decisions []string

	// NextSteps lists the planned follow-ups, in order.
	NextSteps []string

	// Caller carries the tenant hints of the requesting agent.
	Caller *RequestContext
}

// LastSessionParams carries the inputs of [Store.LastSession].
type LastSessionParams struct {
	// WorkspaceHint selects the session chain. Empty defaults to "global".
	WorkspaceHint string

	// Limit caps the number of sessions returned, clamped to [1,10].
	Limit int

	// Caller carries the tenant hints of the requesting agent.
	Caller *RequestContext
}

// ─────────────────────────────────────────────────────────────────────────────
// Store interface
// ─────────────────────────────────────────────────────────────────────────────

// Store is the persistence surface of the memory service. The tool
// dispatcher consumes exactly this interface; the neo4j subpackage
// implements it against a labelled property graph and mock fakes it for
// tests.
//
// Implementations must be safe for concurrent use and must open their own
// short-lived store session per call so concurrent requests never share
// transactional state. Every method honours the deadline of its context.
type Store interface {
	// WriteMemory upserts a memory item keyed by (kind, title) — plus the
	// caller's space in multi-tenant mode — and reconciles its tag set to
	// exactly p.Tags. The result reports whether the item was created or
	// updated.
	WriteMemory(ctx context.Context, p WriteParams) (*WriteResult, error)

	// ReadMemory returns the item with the given store-assigned id, its
	// content shaped by prefer. Lookup is by id alone, not space-filtered.
	// Returns (nil, nil) when no such item exists.
	ReadMemory(ctx context.Context, id string, prefer shape.Prefer) (*Item, error)

	// SearchMemory performs full-text retrieval over titles and bodies,
	// falling back to substring matching when the full-text index is
	// unavailable. An empty query returns an empty (non-nil) slice.
	SearchMemory(ctx context.Context, p SearchParams) ([]SearchResult, error)

	// Bootstrap assembles the pinned + ranked-recent context snapshot an
	// agent loads at session start, shaped and budgeted per p.
	Bootstrap(ctx context.Context, p BootstrapParams) (*BootstrapResult, error)

	// CommitSession records a point-in-time session summary and links it
	// behind the workspace's previous session via a FOLLOWS edge.
	CommitSession(ctx context.Context, p CommitParams) error

	// LastSession returns the most recent sessions of a workspace, newest
	// first. Returns an empty (non-nil) slice when the workspace has none.
	LastSession(ctx context.Context, p LastSessionParams) ([]Session, error)
}
