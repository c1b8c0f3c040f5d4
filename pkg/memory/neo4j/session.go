package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/MrWong99/mnemosyne/pkg/memory"
)

// The FOREACH(CASE ...) idiom creates the FOLLOWS edge only when a prior
// session exists, keeping the whole commit a single statement.

const commitSessionQuery = `
	MERGE (w:Workspace {name: $workspace})
	CREATE (s:Session {
	    workspace_hint: $workspace,
	    summary: $summary,
	    decisions: $decisions,
	    next_steps: $next_steps,
	    created_at: $now
	})
	CREATE (s)-[:IN_WORKSPACE]->(w)
	WITH s, w
	OPTIONAL MATCH (prev:Session)-[:IN_WORKSPACE]->(w)
	WHERE prev <> s
	WITH s, prev
	ORDER BY prev.created_at DESC
	LIMIT 1
	FOREACH (_ IN CASE WHEN prev IS NOT NULL THEN [1] ELSE [] END |
	    CREATE (s)-[:FOLLOWS]->(prev)
	)`

const commitSessionSpaceQuery = `
	MERGE (w:Workspace {name: $workspace})
	MERGE (sp:Space {id: $space_id})
	CREATE (s:Session {
	    workspace_hint: $workspace,
	    summary: $summary,
	    decisions: $decisions,
	    next_steps: $next_steps,
	    created_at: $now,
	    space_id: $space_id
	})
	CREATE (s)-[:IN_WORKSPACE]->(w)
	CREATE (s)-[:IN_SPACE]->(sp)
	WITH s, w
	OPTIONAL MATCH (prev:Session)-[:IN_WORKSPACE]->(w)
	WHERE prev <> s AND prev.space_id = $space_id
	WITH s, prev
	ORDER BY prev.created_at DESC
	LIMIT 1
	FOREACH (_ IN CASE WHEN prev IS NOT NULL THEN [1] ELSE [] END |
	    CREATE (s)-[:FOLLOWS]->(prev)
	)`

const lastSessionsQuery = `
	MATCH (s:Session {workspace_hint: $workspace})
	RETURN
	    elementId(s) AS id,
	    s.created_at AS created_at,
	    s.workspace_hint AS workspace_hint,
	    s.summary AS summary,
	    s.decisions AS decisions,
	    s.next_steps AS next_steps
	ORDER BY s.created_at DESC
	LIMIT $limit`

const lastSessionsSpaceQuery = `
	MATCH (s:Session {workspace_hint: $workspace})
	WHERE s.space_id IN $spaces
	RETURN
	    elementId(s) AS id,
	    s.created_at AS created_at,
	    s.workspace_hint AS workspace_hint,
	    s.summary AS summary,
	    s.decisions AS decisions,
	    s.next_steps AS next_steps
	ORDER BY s.created_at DESC
	LIMIT $limit`

// CommitSession implements [memory.Store]. Each commit creates a fresh
// Session node — commits never merge — and chains it behind the workspace's
// previous session with a FOLLOWS edge. Decisions and next steps are stored
// as JSON-encoded strings on the node.
func (s *Store) CommitSession(ctx context.Context, p memory.CommitParams) error {
	workspace := strings.TrimSpace(p.WorkspaceHint)
	if workspace == "" {
		workspace = "global"
	}

	params := map[string]any{
		"workspace":  workspace,
		"summary":    strings.TrimSpace(p.Summary),
		"decisions":  memory.EncodeStringList(p.Decisions),
		"next_steps": memory.EncodeStringList(p.NextSteps),
		"now":        nowTimestamp(),
	}
	query := commitSessionQuery
	if s.multiTenant {
		space, _ := memory.ResolveSpace(p.Caller)
		params["space_id"] = space
		query = commitSessionSpaceQuery
	}

	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j store: commit session: %w", err)
	}
	return nil
}

// LastSession implements [memory.Store].
func (s *Store) LastSession(ctx context.Context, p memory.LastSessionParams) ([]memory.Session, error) {
	sessions, err := s.lastSessions(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("neo4j store: last session: %w", err)
	}
	return sessions, nil
}

// lastSessions is the unwrapped query shared by [Store.LastSession] and
// [Store.Bootstrap].
func (s *Store) lastSessions(ctx context.Context, p memory.LastSessionParams) ([]memory.Session, error) {
	workspace := strings.TrimSpace(p.WorkspaceHint)
	if workspace == "" {
		workspace = "global"
	}
	limit := min(max(p.Limit, 1), 10)

	params := map[string]any{"workspace": workspace, "limit": limit}
	query := lastSessionsQuery
	if s.multiTenant {
		_, allowed := memory.ResolveSpace(p.Caller)
		params["spaces"] = stringList(allowed)
		query = lastSessionsSpaceQuery
	}

	sess := s.readSession(ctx)
	defer sess.Close(ctx)

	out, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		sessions := make([]memory.Session, 0, len(records))
		for _, record := range records {
			sessions = append(sessions, sessionRecord(record))
		}
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]memory.Session), nil
}
