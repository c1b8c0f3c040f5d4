package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/MrWong99/mnemosyne/pkg/memory"
)

// itemRecord scans a query record into the backend-independent raw item
// form. Keys a query did not return and null properties scan to their zero
// value, except importance, which defaults to the stored write default.
func itemRecord(rec *neo4j.Record) memory.ItemRecord {
	return memory.ItemRecord{
		ID:             stringValue(rec, "id"),
		Kind:           stringValue(rec, "kind"),
		Title:          stringValue(rec, "title"),
		Content:        stringValue(rec, "content"),
		ContentCompact: stringValue(rec, "content_compact"),
		Tags:           stringListValue(rec, "tags"),
		Pinned:         boolValue(rec, "pinned"),
		UpdatedAt:      stringValue(rec, "updated_at"),
		CreatedAt:      stringValue(rec, "created_at"),
		Importance:     intValue(rec, "importance", memory.DefaultImportance),
		WorkspaceHint:  stringValue(rec, "workspace_hint"),
		Source:         stringValue(rec, "source"),
	}
}

// sessionRecord scans a query record into a session, materialising the
// JSON-encoded decisions and next_steps back into lists.
func sessionRecord(rec *neo4j.Record) memory.Session {
	return memory.Session{
		ID:            stringValue(rec, "id"),
		CreatedAt:     stringValue(rec, "created_at"),
		WorkspaceHint: stringValue(rec, "workspace_hint"),
		Summary:       stringValue(rec, "summary"),
		Decisions:     memory.DecodeStringList(stringValue(rec, "decisions")),
		NextSteps:     memory.DecodeStringList(stringValue(rec, "next_steps")),
	}
}

// collectItemRecords runs an item query in a managed read transaction and
// scans every returned record.
func collectItemRecords(ctx context.Context, sess neo4j.SessionWithContext, query string, params map[string]any) ([]memory.ItemRecord, error) {
	out, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		recs := make([]memory.ItemRecord, 0, len(records))
		for _, record := range records {
			recs = append(recs, itemRecord(record))
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]memory.ItemRecord), nil
}

// stringValue returns the named record value as a string, or "" when the key
// is absent, null, or not a string.
func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// boolValue returns the named record value as a bool, or false when absent
// or null.
func boolValue(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// intValue returns the named record value as an int, or fallback when the
// key is absent, null, or not numeric.
func intValue(rec *neo4j.Record, key string, fallback int) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return fallback
}

// stringListValue returns the named record value as a string slice, dropping
// non-string elements. Absent or null values scan to nil.
func stringListValue(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// stringList converts a string slice into the []any form the driver accepts
// as a query parameter.
func stringList(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// nullableString maps an empty string to a null parameter so optional
// properties are stored as absent rather than "".
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
