// Package shape implements the content-shaping policy of the memory service:
// deterministic compact-snippet generation, recency decay, per-item relevance
// scoring, mode-driven content selection, and rough token estimation.
//
// Everything in this package is a pure function of its inputs. Callers pass
// the current time explicitly so that ranking stays reproducible in tests.
// All character counts operate on Unicode code points, not bytes.
package shape

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ─────────────────────────────────────────────────────────────────────────────
// Policy constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// DefaultCompactChars is the compact-snippet length [Compact] targets when
	// the caller does not supply a positive maximum.
	DefaultCompactChars = 200

	// RecencyHalfLifeDays controls how fast [RecencyWeight] decays: an item's
	// weight halves every RecencyHalfLifeDays days since its last update.
	RecencyHalfLifeDays = 14.0

	// WorkspaceMatchBoost multiplies the score of an item whose workspace hint
	// equals the querying workspace.
	WorkspaceMatchBoost = 1.2

	// WorkspaceMismatchPenalty multiplies the score of an item whose workspace
	// hint is set but differs from the querying workspace.
	WorkspaceMismatchPenalty = 0.8

	// HybridFullMaxChars is the maximum full-content length for which hybrid
	// mode returns the full content instead of the compact form.
	HybridFullMaxChars = 300
)

// ellipsis is the single code point appended to every truncated snippet.
const ellipsis = "…"

// kindWeights ranks memory kinds by how much durable value they tend to
// carry. Unknown kinds fall back to the note weight.
var kindWeights = map[string]float64{
	"decision": 1.4,
	"pattern":  1.3,
	"command":  1.2,
	"answer":   1.1,
	"note":     0.7,
}

const defaultKindWeight = 0.7

// hybridFullKinds are the kinds whose full content survives hybrid mode when
// short enough. Commands and patterns lose their value when truncated.
var hybridFullKinds = map[string]bool{
	"command": true,
	"pattern": true,
}

// sentenceBreaks are tried in priority order when [Compact] looks for a
// natural cut point inside a truncated snippet.
var sentenceBreaks = [...]string{"\n", ". ", "! ", "? "}

// KindWeight returns the ranking weight for a memory kind.
// Unknown kinds weigh the same as notes.
func KindWeight(kind string) float64 {
	if w, ok := kindWeights[kind]; ok {
		return w
	}
	return defaultKindWeight
}

// ─────────────────────────────────────────────────────────────────────────────
// Bootstrap mode and read preference
// ─────────────────────────────────────────────────────────────────────────────

// Mode selects how much content a bootstrap response carries per item.
type Mode string

const (
	// ModeThin returns only compact snippets.
	ModeThin Mode = "thin"

	// ModeHybrid returns full content for short commands and patterns and
	// compact snippets for everything else.
	ModeHybrid Mode = "hybrid"

	// ModeFull returns full content for every item.
	ModeFull Mode = "full"
)

// IsValid reports whether m is a recognised bootstrap mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeThin, ModeHybrid, ModeFull:
		return true
	}
	return false
}

// Prefer selects which content form read and search operations surface as the
// primary payload.
type Prefer string

const (
	// PreferFull surfaces the full content.
	PreferFull Prefer = "full"

	// PreferCompact surfaces the compact snippet.
	PreferCompact Prefer = "compact"
)

// IsValid reports whether p is a recognised content preference.
func (p Prefer) IsValid() bool {
	switch p {
	case PreferFull, PreferCompact:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Shaping functions
// ─────────────────────────────────────────────────────────────────────────────

// Compact derives a deterministic short snippet from full content.
//
// The content is trimmed and returned unchanged when it fits within maxChars
// code points. Otherwise it is cut at maxChars and the trailing half of the
// cut is searched for the last newline, then the last sentence boundary
// (". ", "! ", "? "), in that priority order. A boundary found past the
// midpoint wins: the snippet ends there, keeps the separator, and loses any
// trailing whitespace. The ellipsis "…" is appended either way.
//
// A maxChars ≤ 0 falls back to [DefaultCompactChars].
func Compact(content string, maxChars int) string {
	content = strings.TrimSpace(content)
	if maxChars <= 0 {
		maxChars = DefaultCompactChars
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	cut := string(runes[:maxChars])
	for _, sep := range sentenceBreaks {
		byteIdx := strings.LastIndex(cut, sep)
		if byteIdx < 0 {
			continue
		}
		runeIdx := utf8.RuneCountInString(cut[:byteIdx])
		if runeIdx > maxChars/2 {
			snippet := strings.TrimRightFunc(cut[:byteIdx+len(sep)], unicode.IsSpace)
			return snippet + ellipsis
		}
	}
	return cut + ellipsis
}

// RecencyWeight computes the half-life decay weight of an item whose
// updated_at property holds an RFC 3339 timestamp ("Z" or numeric offset,
// fractional seconds optional). The weight halves every
// [RecencyHalfLifeDays] days of age relative to now; future timestamps clamp
// to weight 1.0. An unparseable timestamp yields the neutral weight 0.5.
func RecencyWeight(updatedAt string, now time.Time) float64 {
	updated, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return 0.5
	}
	ageDays := now.Sub(updated).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/RecencyHalfLifeDays)
}

// Score ranks a memory item for retrieval. Higher is more relevant.
//
// The score is the product of four weights: the kind weight, the recency
// decay of updatedAt, an importance factor (0.5 + importance/100), and a
// workspace affinity. Workspace affinity only applies when the querying
// workspace is set, is not "global", and the item carries a workspace hint:
// a match multiplies by [WorkspaceMatchBoost], a mismatch by
// [WorkspaceMismatchPenalty]. Otherwise it is neutral.
func Score(kind, updatedAt, itemWorkspace, queryWorkspace string, importance int, now time.Time) float64 {
	score := KindWeight(kind) * RecencyWeight(updatedAt, now) * (0.5 + float64(importance)/100)
	if queryWorkspace != "" && queryWorkspace != "global" && itemWorkspace != "" {
		if itemWorkspace == queryWorkspace {
			score *= WorkspaceMatchBoost
		} else {
			score *= WorkspaceMismatchPenalty
		}
	}
	return score
}

// SelectContent picks the content form a bootstrap item carries for the given
// mode.
//
//   - [ModeFull] always returns content.
//   - [ModeHybrid] returns content for commands and patterns no longer than
//     [HybridFullMaxChars] code points, the compact form otherwise.
//   - [ModeThin] (and any unrecognised mode) returns contentCompact, or a
//     freshly compacted snippet when the stored compact form is empty.
func SelectContent(kind, content, contentCompact string, mode Mode) string {
	switch mode {
	case ModeFull:
		return content
	case ModeHybrid:
		if hybridFullKinds[kind] && utf8.RuneCountInString(content) <= HybridFullMaxChars {
			return content
		}
	}
	if contentCompact != "" {
		return contentCompact
	}
	return Compact(content, DefaultCompactChars)
}

// EstimateTokens approximates the token count of text at roughly four code
// points per token, rounded up. Empty text estimates to zero.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}
