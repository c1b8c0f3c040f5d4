package neo4j

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mnemosyne/pkg/memory"
)

// itemFields is the projection shared by the bootstrap queries.
const itemFields = `
	    elementId(m) AS id,
	    m.kind AS kind,
	    m.title AS title,
	    m.content AS content,
	    m.content_compact AS content_compact,
	    tags,
	    m.updated_at AS updated_at,
	    m.importance AS importance,
	    m.workspace_hint AS workspace_hint`

const pinnedItemsQuery = `
	MATCH (m:MemoryItem {pinned: true})
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN` + itemFields + `
	ORDER BY m.updated_at DESC
	LIMIT $limit`

const pinnedItemsSpaceQuery = `
	MATCH (m:MemoryItem {pinned: true})
	WHERE m.space_id IN $spaces
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN` + itemFields + `
	ORDER BY m.updated_at DESC
	LIMIT $limit`

const recentItemsQuery = `
	MATCH (m:MemoryItem)
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN` + itemFields + `
	ORDER BY m.updated_at DESC
	LIMIT $limit`

const recentItemsSpaceQuery = `
	MATCH (m:MemoryItem)
	WHERE m.space_id IN $spaces
	OPTIONAL MATCH (m)-[:TAGGED_WITH]->(t:Tag)
	WITH m, collect(t.name) AS tags
	RETURN` + itemFields + `
	ORDER BY m.updated_at DESC
	LIMIT $limit`

// Bootstrap implements [memory.Store]. The pinned, recent, and (when
// requested) last-session queries fan out concurrently, each on its own
// session; ranking, deduplication, and budgeting happen client-side in
// [memory.AssembleBootstrap].
//
// The recent query over-fetches max(limit_recent×3, max_items×2) candidates
// by recency so scoring has headroom to promote older but heavier-weighted
// items.
func (s *Store) Bootstrap(ctx context.Context, p memory.BootstrapParams) (*memory.BootstrapResult, error) {
	p = p.Normalized()
	fetchLimit := max(p.LimitRecent*3, p.MaxItems*2)

	pinnedQuery, recentQuery := pinnedItemsQuery, recentItemsQuery
	pinnedParams := map[string]any{"limit": p.LimitPinned}
	recentParams := map[string]any{"limit": fetchLimit}
	if s.multiTenant {
		_, allowed := memory.ResolveSpace(p.Caller)
		spaces := stringList(allowed)
		pinnedParams["spaces"] = spaces
		recentParams["spaces"] = spaces
		pinnedQuery, recentQuery = pinnedItemsSpaceQuery, recentItemsSpaceQuery
	}

	var (
		pinned, recent []memory.ItemRecord
		sessions       []memory.Session
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sess := s.readSession(gctx)
		defer sess.Close(gctx)
		var err error
		pinned, err = collectItemRecords(gctx, sess, pinnedQuery, pinnedParams)
		return err
	})
	g.Go(func() error {
		sess := s.readSession(gctx)
		defer sess.Close(gctx)
		var err error
		recent, err = collectItemRecords(gctx, sess, recentQuery, recentParams)
		return err
	})
	if p.IncludeSessions {
		g.Go(func() error {
			var err error
			sessions, err = s.lastSessions(gctx, memory.LastSessionParams{
				WorkspaceHint: p.WorkspaceHint,
				Limit:         1,
				Caller:        p.Caller,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("neo4j store: bootstrap: %w", err)
	}

	pinnedOut, recentOut := memory.AssembleBootstrap(p, pinned, recent, time.Now().UTC())
	result := &memory.BootstrapResult{
		Pinned:           pinnedOut,
		Recent:           recentOut,
		SessionsIncluded: p.IncludeSessions,
	}
	if len(sessions) > 0 {
		last := sessions[0]
		result.LastSession = &last
	}
	return result, nil
}
