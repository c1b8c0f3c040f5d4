package memory

import (
	"encoding/json"

	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// ─────────────────────────────────────────────────────────────────────────────
// Result shaping shared by all backends
// ─────────────────────────────────────────────────────────────────────────────

// EncodeStringList renders a string list — a tag set, session decisions,
// next steps — as the JSON-encoded array string the store and the wire carry.
// The double encoding is part of the wire contract. A nil or empty list
// encodes as "[]".
func EncodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// DecodeStringList parses a JSON-encoded array of strings, the stored form
// of session decisions and next steps. Anything unparseable decodes to an
// empty (non-nil) slice.
func DecodeStringList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// preferContent picks the content form a read or search result surfaces:
// the stored compact form when compact is preferred, a freshly compacted
// snippet when there is none, the full body otherwise.
func preferContent(rec ItemRecord, prefer shape.Prefer, snippetChars int) string {
	if prefer != shape.PreferCompact {
		return rec.Content
	}
	if rec.ContentCompact != "" {
		return rec.ContentCompact
	}
	return shape.Compact(rec.Content, snippetChars)
}

// FormatItem shapes a full record into the read payload: the preferred
// content form plus both stored forms and every scalar attribute.
func FormatItem(rec ItemRecord, prefer shape.Prefer) *Item {
	return &Item{
		ID:             rec.ID,
		Kind:           rec.Kind,
		Title:          rec.Title,
		Content:        preferContent(rec, prefer, shape.DefaultCompactChars),
		ContentCompact: rec.ContentCompact,
		ContentFull:    rec.Content,
		Tags:           EncodeStringList(rec.Tags),
		Pinned:         pinnedFlag(rec.Pinned),
		UpdatedAt:      rec.UpdatedAt,
		CreatedAt:      rec.CreatedAt,
		Importance:     rec.Importance,
		WorkspaceHint:  rec.WorkspaceHint,
		Source:         rec.Source,
	}
}

// FormatSearchResults shapes raw records into search payloads with content
// chosen per prefer. HasFull flags results whose emitted content is a strict
// reduction of the stored body, telling the caller a follow-up read can
// return more. Returns an empty (non-nil) slice for no records.
func FormatSearchResults(recs []ItemRecord, prefer shape.Prefer, snippetChars int) []SearchResult {
	out := make([]SearchResult, 0, len(recs))
	for _, rec := range recs {
		content := preferContent(rec, prefer, snippetChars)
		out = append(out, SearchResult{
			ID:        rec.ID,
			Kind:      rec.Kind,
			Title:     rec.Title,
			Content:   content,
			Tags:      EncodeStringList(rec.Tags),
			Pinned:    pinnedFlag(rec.Pinned),
			UpdatedAt: rec.UpdatedAt,
			HasFull:   rec.Content != "" && rec.Content != content,
		})
	}
	return out
}

// FormatBootstrapItem converts a raw record and its mode-shaped content into
// the bootstrap payload form.
func FormatBootstrapItem(rec ItemRecord, shaped string) BootstrapItem {
	return BootstrapItem{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Title:     rec.Title,
		Content:   shaped,
		Tags:      EncodeStringList(rec.Tags),
		UpdatedAt: rec.UpdatedAt,
		HasFull:   rec.Content != "" && rec.Content != shaped,
	}
}

// pinnedFlag converts the stored boolean into the 0/1 wire form.
func pinnedFlag(pinned bool) int {
	if pinned {
		return 1
	}
	return 0
}
