package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/MrWong99/mnemosyne/pkg/memory"
	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// ─────────────────────────────────────────────────────────────────────────────
// Write
// ─────────────────────────────────────────────────────────────────────────────

// The upsert distinguishes created from updated without a read-before-write:
// both SET branches stamp updated_at with the same $now the ON CREATE branch
// stamps created_at with, so created_at = $now identifies the create case.

const upsertItemQuery = `
	MERGE (m:MemoryItem {kind: $kind, title: $title})
	ON CREATE SET
	    m.content = $content,
	    m.content_compact = $content_compact,
	    m.created_at = $now,
	    m.updated_at = $now,
	    m.pinned = $pinned,
	    m.importance = $importance,
	    m.workspace_hint = $workspace_hint,
	    m.source = $source
	ON MATCH SET
	    m.content = $content,
	    m.content_compact = $content_compact,
	    m.updated_at = $now,
	    m.pinned = $pinned,
	    m.importance = $importance,
	    m.workspace_hint = $workspace_hint,
	    m.source = $source
	WITH m,
	     CASE WHEN m.created_at = $now THEN 'created' ELSE 'updated' END AS action
	RETURN elementId(m) AS id, action`

const upsertItemSpaceQuery = `
	MERGE (s:Space {id: $space_id})
	MERGE (m:MemoryItem {space_id: $space_id, kind: $kind, title: $title})
	ON CREATE SET
	    m.content = $content,
	    m.content_compact = $content_compact,
	    m.created_at = $now,
	    m.updated_at = $now,
	    m.pinned = $pinned,
	    m.importance = $importance,
	    m.workspace_hint = $workspace_hint,
	    m.source = $source
	ON MATCH SET
	    m.content = $content,
	    m.content_compact = $content_compact,
	    m.updated_at = $now,
	    m.pinned = $pinned,
	    m.importance = $importance,
	    m.workspace_hint = $workspace_hint,
	    m.source = $source
	WITH s, m,
	     CASE WHEN m.created_at = $now THEN 'created' ELSE 'updated' END AS action
	MERGE (s)-[:CONTAINS]->(m)
	RETURN elementId(m) AS id, action`

const clearTagsQuery = `
	MATCH (m:MemoryItem {kind: $kind, title: $title})-[r:TAGGED_WITH]->() DELETE r`

const clearTagsSpaceQuery = `
	MATCH (m:MemoryItem {space_id: $space_id, kind: $kind, title: $title})-[r:TAGGED_WITH]->() DELETE r`

const mergeTagsQuery = `
	MATCH (m:MemoryItem {kind: $kind, title: $title})
	UNWIND $tags AS tag
	MERGE (t:Tag {name: tag})
	MERGE (m)-[:TAGGED_WITH]->(t)`

const mergeTagsSpaceQuery = `
	MATCH (m:MemoryItem {space_id: $space_id, kind: $kind, title: $title})
	UNWIND $tags AS tag
	MERGE (t:Tag {name: tag})
	MERGE (m)-[:TAGGED_WITH]->(t)`

// WriteMemory implements [memory.Store]. The upsert and the tag
// reconciliation (drop every TAGGED_WITH edge, re-merge the new set) run in
// one managed write transaction, so a concurrent reader never observes a
// half-tagged item.
func (s *Store) WriteMemory(ctx context.Context, p memory.WriteParams) (*memory.WriteResult, error) {
	p = p.Normalized()

	params := map[string]any{
		"kind":            p.Kind,
		"title":           p.Title,
		"content":         p.Content,
		"content_compact": *p.ContentCompact,
		"now":             nowTimestamp(),
		"pinned":          p.Pinned,
		"importance":      *p.Importance,
		"workspace_hint":  nullableString(p.WorkspaceHint),
		"source":          p.Source,
	}
	upsert, clearTags, mergeTags := upsertItemQuery, clearTagsQuery, mergeTagsQuery
	if s.multiTenant {
		space, _ := memory.ResolveSpace(p.Caller)
		params["space_id"] = space
		upsert, clearTags, mergeTags = upsertItemSpaceQuery, clearTagsSpaceQuery, mergeTagsSpaceQuery
	}

	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	out, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsert, params)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		result := &memory.WriteResult{
			OK:     true,
			Action: stringValue(rec, "action"),
			ID:     stringValue(rec, "id"),
		}

		res, err = tx.Run(ctx, clearTags, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(p.Tags) > 0 {
			params["tags"] = stringList(p.Tags)
			res, err = tx.Run(ctx, mergeTags, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j store: write memory: %w", err)
	}
	return out.(*memory.WriteResult), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read
// ─────────────────────────────────────────────────────────────────────────────

const readItemQuery = `
	MATCH (m:MemoryItem)
	WHERE elementId(m) = $item_id
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN
	    elementId(m) AS id,
	    m.kind AS kind,
	    m.title AS title,
	    m.content AS content,
	    m.content_compact AS content_compact,
	    tags,
	    m.pinned AS pinned,
	    m.updated_at AS updated_at,
	    m.created_at AS created_at,
	    m.importance AS importance,
	    m.workspace_hint AS workspace_hint,
	    m.source AS source`

// ReadMemory implements [memory.Store]. Lookup is by element id alone and is
// deliberately not space-filtered: ids only circulate inside results the
// caller was already allowed to see. An unknown id returns (nil, nil).
func (s *Store) ReadMemory(ctx context.Context, id string, prefer shape.Prefer) (*memory.Item, error) {
	sess := s.readSession(ctx)
	defer sess.Close(ctx)

	out, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, readItemQuery, map[string]any{"item_id": id})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return itemRecord(records[0]), nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j store: read memory: %w", err)
	}
	if out == nil {
		return nil, nil
	}
	return memory.FormatItem(out.(memory.ItemRecord), prefer), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

const fulltextSearchQuery = `
	CALL db.index.fulltext.queryNodes('memory_fulltext', $search_text)
	YIELD node, score
	OPTIONAL MATCH (node)-[:TAGGED_WITH]->(t:Tag)
	WITH node, score, collect(t.name) AS tags
	RETURN
	    elementId(node) AS id,
	    node.kind AS kind,
	    node.title AS title,
	    node.content AS content,
	    node.content_compact AS content_compact,
	    tags,
	    node.pinned AS pinned,
	    node.updated_at AS updated_at,
	    node.importance AS importance,
	    node.workspace_hint AS workspace_hint,
	    score
	ORDER BY score DESC
	LIMIT $lim`

const fulltextSearchSpaceQuery = `
	CALL db.index.fulltext.queryNodes('memory_fulltext', $search_text)
	YIELD node, score
	WHERE node.space_id IN $spaces
	OPTIONAL MATCH (node)-[:TAGGED_WITH]->(t:Tag)
	WITH node, score, collect(t.name) AS tags
	RETURN
	    elementId(node) AS id,
	    node.kind AS kind,
	    node.title AS title,
	    node.content AS content,
	    node.content_compact AS content_compact,
	    tags,
	    node.pinned AS pinned,
	    node.updated_at AS updated_at,
	    node.importance AS importance,
	    node.workspace_hint AS workspace_hint,
	    score
	ORDER BY score DESC
	LIMIT $lim`

const substringSearchQuery = `
	MATCH (m:MemoryItem)
	WHERE toLower(m.title) CONTAINS toLower($search_text)
	   OR toLower(m.content) CONTAINS toLower($search_text)
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN
	    elementId(m) AS id,
	    m.kind AS kind,
	    m.title AS title,
	    m.content AS content,
	    m.content_compact AS content_compact,
	    tags,
	    m.pinned AS pinned,
	    m.updated_at AS updated_at,
	    m.importance AS importance,
	    m.workspace_hint AS workspace_hint
	ORDER BY m.updated_at DESC
	LIMIT $lim`

const substringSearchSpaceQuery = `
	MATCH (m:MemoryItem)
	WHERE (toLower(m.title) CONTAINS toLower($search_text)
	   OR toLower(m.content) CONTAINS toLower($search_text))
	  AND m.space_id IN $spaces
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN
	    elementId(m) AS id,
	    m.kind AS kind,
	    m.title AS title,
	    m.content AS content,
	    m.content_compact AS content_compact,
	    tags,
	    m.pinned AS pinned,
	    m.updated_at AS updated_at,
	    m.importance AS importance,
	    m.workspace_hint AS workspace_hint
	ORDER BY m.updated_at DESC
	LIMIT $lim`

// SearchMemory implements [memory.Store]. It queries the fulltext index
// ordered by store relevance; when that fails (index missing or
// misconfigured) it logs a warning and retries with a case-insensitive
// substring match over title and content ordered by recency.
func (s *Store) SearchMemory(ctx context.Context, p memory.SearchParams) ([]memory.SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return []memory.SearchResult{}, nil
	}
	limit := min(max(p.Limit, 1), 25)

	params := map[string]any{"search_text": query, "lim": limit}
	fulltext, fallback := fulltextSearchQuery, substringSearchQuery
	if s.multiTenant {
		_, allowed := memory.ResolveSpace(p.Caller)
		params["spaces"] = stringList(allowed)
		fulltext, fallback = fulltextSearchSpaceQuery, substringSearchSpaceQuery
	}

	sess := s.readSession(ctx)
	defer sess.Close(ctx)

	recs, err := collectItemRecords(ctx, sess, fulltext, params)
	if err != nil {
		slog.WarnContext(ctx, "fulltext search failed, falling back to substring match",
			"query", query, "error", err)
		if s.onFulltextFallback != nil {
			s.onFulltextFallback(ctx)
		}
		recs, err = collectItemRecords(ctx, sess, fallback, params)
		if err != nil {
			return nil, fmt.Errorf("neo4j store: search memory: %w", err)
		}
	}
	return memory.FormatSearchResults(recs, p.Prefer, p.SnippetChars), nil
}
