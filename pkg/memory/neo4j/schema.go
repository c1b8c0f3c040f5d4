// Package neo4j provides the Neo4j-backed implementation of the Mnemosyne
// memory store: memory items, tags, workspaces, sessions and tenant spaces
// as a labelled property graph.
//
// Graph schema:
//
//	(:MemoryItem {kind, title, content, content_compact, created_at,
//	              updated_at, pinned, importance, workspace_hint, source})
//	    -[:TAGGED_WITH]-> (:Tag {name})
//	(:Session {workspace_hint, summary, decisions, next_steps, created_at})
//	    -[:FOLLOWS]->      (:Session)
//	    -[:IN_WORKSPACE]-> (:Workspace {name})
//
// In multi-tenant mode every MemoryItem and Session additionally carries a
// space_id property, items hang off their space via
// (:Space {id})-[:CONTAINS]->(:MemoryItem), and sessions link to it via
// [:IN_SPACE].
//
// Usage:
//
//	store, err := neo4j.NewStore(ctx, neo4j.Config{URI: "bolt://localhost:7687", …})
//	if err != nil { … }
//	defer store.Close(ctx)
//
//	if err := store.InstallSchema(ctx); err != nil { … }
//
//	res, err := store.WriteMemory(ctx, memory.WriteParams{Kind: "decision", …})
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaStatements are the indexes and constraints every deployment needs.
// All statements are idempotent (IF NOT EXISTS) and safe to run on every
// application start.
var schemaStatements = []string{
	// Dedup key lookups.
	`CREATE INDEX memory_item_kind_title IF NOT EXISTS
	 FOR (m:MemoryItem) ON (m.kind, m.title)`,

	// Pinned scans for bootstrap.
	`CREATE INDEX memory_item_pinned IF NOT EXISTS
	 FOR (m:MemoryItem) ON (m.pinned)`,

	// Recency ordering.
	`CREATE INDEX memory_item_updated IF NOT EXISTS
	 FOR (m:MemoryItem) ON (m.updated_at)`,

	// Workspace scoping.
	`CREATE INDEX memory_item_workspace IF NOT EXISTS
	 FOR (m:MemoryItem) ON (m.workspace_hint)`,

	`CREATE CONSTRAINT tag_name_unique IF NOT EXISTS
	 FOR (t:Tag) REQUIRE t.name IS UNIQUE`,

	`CREATE CONSTRAINT workspace_name_unique IF NOT EXISTS
	 FOR (w:Workspace) REQUIRE w.name IS UNIQUE`,

	`CREATE CONSTRAINT space_id_unique IF NOT EXISTS
	 FOR (s:Space) REQUIRE s.id IS UNIQUE`,

	`CREATE INDEX session_created IF NOT EXISTS
	 FOR (s:Session) ON (s.created_at)`,

	`CREATE INDEX session_workspace IF NOT EXISTS
	 FOR (s:Session) ON (s.workspace_hint)`,

	`CREATE INDEX session_space IF NOT EXISTS
	 FOR (s:Session) ON (s.space_id)`,

	// Per-space dedup key.
	`CREATE INDEX memory_item_space_kind_title IF NOT EXISTS
	 FOR (m:MemoryItem) ON (m.space_id, m.kind, m.title)`,
}

// ddlFulltext backs search_memory. It is handled outside schemaStatements:
// an index that already exists with a different analyzer configuration makes
// creation fail, and the store still works via the substring fallback.
const ddlFulltext = `CREATE FULLTEXT INDEX memory_fulltext IF NOT EXISTS
 FOR (m:MemoryItem) ON EACH [m.title, m.content, m.content_compact]`

// InstallSchema creates all indexes and constraints the store queries rely
// on. It is idempotent and safe to call on every application start.
//
// Schema commands cannot run inside managed transactions, so each statement
// executes in its own auto-commit transaction. A fulltext index failure is
// demoted to a warning because search degrades gracefully to substring
// matching without it.
func (s *Store) InstallSchema(ctx context.Context) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	for _, stmt := range schemaStatements {
		if err := runAutocommit(ctx, sess, stmt); err != nil {
			return fmt.Errorf("neo4j store: install schema: %w", err)
		}
	}

	if err := runAutocommit(ctx, sess, ddlFulltext); err != nil {
		slog.WarnContext(ctx, "fulltext index creation failed, search will use the substring fallback",
			"index", "memory_fulltext", "error", err)
	}
	return nil
}
