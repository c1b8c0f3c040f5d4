package neo4j_test

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"testing"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/MrWong99/mnemosyne/pkg/memory"
	"github.com/MrWong99/mnemosyne/pkg/memory/neo4j"
	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// testConfig returns connection settings from the environment, or skips the
// test if MNEMOSYNE_TEST_NEO4J_URI is not set.
func testConfig(t *testing.T) neo4j.Config {
	t.Helper()
	uri := os.Getenv("MNEMOSYNE_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("MNEMOSYNE_TEST_NEO4J_URI not set — skipping Neo4j integration tests")
	}
	return neo4j.Config{
		URI:      uri,
		User:     envOr("MNEMOSYNE_TEST_NEO4J_USER", "neo4j"),
		Password: envOr("MNEMOSYNE_TEST_NEO4J_PASSWORD", "mnemosyne"),
		Database: envOr("MNEMOSYNE_TEST_NEO4J_DATABASE", "neo4j"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newTestStore creates a store against a wiped database with the schema
// installed and all indexes online. It calls t.Cleanup to close the store
// when the test finishes.
func newTestStore(t *testing.T) *neo4j.Store {
	return newStoreWith(t, false)
}

// newMultiTenantStore is [newTestStore] with space scoping enabled.
func newMultiTenantStore(t *testing.T) *neo4j.Store {
	return newStoreWith(t, true)
}

func newStoreWith(t *testing.T, multiTenant bool) *neo4j.Store {
	t.Helper()
	cfg := testConfig(t)
	cfg.MultiTenant = multiTenant
	ctx := context.Background()

	wipeDatabase(t, ctx, cfg)

	store, err := neo4j.NewStore(ctx, cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	if err := store.InstallSchema(ctx); err != nil {
		t.Fatalf("InstallSchema: %v", err)
	}
	// Index population is asynchronous; block until searchable.
	runRaw(t, ctx, cfg, "CALL db.awaitIndexes()", nil)
	return store
}

// wipeDatabase removes all nodes and relationships. Indexes and constraints
// survive, which keeps index population out of the per-test cost.
func wipeDatabase(t *testing.T, ctx context.Context, cfg neo4j.Config) {
	t.Helper()
	runRaw(t, ctx, cfg, "MATCH (n) DETACH DELETE n", nil)
}

// runRaw executes a statement over a bare driver session, for setup and for
// graph-level assertions the store API does not expose.
func runRaw(t *testing.T, ctx context.Context, cfg neo4j.Config, cypher string, params map[string]any) []*neo4jdrv.Record {
	t.Helper()
	driver, err := neo4jdrv.NewDriverWithContext(cfg.URI, neo4jdrv.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	defer driver.Close(ctx)

	sess := driver.NewSession(ctx, neo4jdrv.SessionConfig{DatabaseName: cfg.Database})
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		t.Fatalf("run %q: %v", cypher, err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		t.Fatalf("collect %q: %v", cypher, err)
	}
	return records
}

func mustWrite(t *testing.T, ctx context.Context, store *neo4j.Store, p memory.WriteParams) *memory.WriteResult {
	t.Helper()
	res, err := store.WriteMemory(ctx, p)
	if err != nil {
		t.Fatalf("WriteMemory %q: %v", p.Title, err)
	}
	return res
}

func itemTitles(items []memory.BootstrapItem) []string {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	return titles
}

func containsTitle(items []memory.BootstrapItem, title string) bool {
	for _, it := range items {
		if it.Title == title {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Write
// ─────────────────────────────────────────────────────────────────────────────

func TestWriteMemory_CreateAndUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "Dedup target",
		Content: "Original content",
	})
	if !first.OK {
		t.Error("first write: want ok=true")
	}
	if first.Action != memory.ActionCreated {
		t.Errorf("first write: want action %q, got %q", memory.ActionCreated, first.Action)
	}
	if first.ID == "" {
		t.Error("first write: want non-empty id")
	}

	second := mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "Dedup target",
		Content: "Updated content",
	})
	if second.Action != memory.ActionUpdated {
		t.Errorf("second write: want action %q, got %q", memory.ActionUpdated, second.Action)
	}
	if second.ID != first.ID {
		t.Errorf("second write: want same id %s, got %s", first.ID, second.ID)
	}

	item, err := store.ReadMemory(ctx, first.ID, shape.PreferFull)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if item == nil {
		t.Fatal("ReadMemory: expected item, got nil")
	}
	if item.Content != "Updated content" {
		t.Errorf("content after update: want %q, got %q", "Updated content", item.Content)
	}
	if item.CreatedAt == "" || item.UpdatedAt == "" {
		t.Errorf("timestamps missing: created_at=%q updated_at=%q", item.CreatedAt, item.UpdatedAt)
	}
	if item.CreatedAt == item.UpdatedAt {
		t.Error("updated item should carry a newer updated_at than created_at")
	}

	// A different kind under the same title is a distinct item.
	third := mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "decision",
		Title:   "Dedup target",
		Content: "Decision content",
	})
	if third.Action != memory.ActionCreated {
		t.Errorf("different kind: want action %q, got %q", memory.ActionCreated, third.Action)
	}
	if third.ID == first.ID {
		t.Error("different kind: want a fresh id")
	}
}

func TestWriteMemory_Normalisation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "Wisdom", // not a recognised kind
		Title:   "  padded title  ",
		Content: "body",
	})

	item, err := store.ReadMemory(ctx, res.ID, shape.PreferFull)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if item.Kind != "note" {
		t.Errorf("kind: want coercion to %q, got %q", "note", item.Kind)
	}
	if item.Title != "padded title" {
		t.Errorf("title: want trimmed %q, got %q", "padded title", item.Title)
	}
	if item.Importance != memory.DefaultImportance {
		t.Errorf("importance: want default %d, got %d", memory.DefaultImportance, item.Importance)
	}
	if item.Source != memory.DefaultSource {
		t.Errorf("source: want default %q, got %q", memory.DefaultSource, item.Source)
	}
}

func TestWriteMemory_TagReconciliation(t *testing.T) {
	store := newTestStore(t)
	cfg := testConfig(t)
	ctx := context.Background()

	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "pattern",
		Title:   "Tagged pattern",
		Content: "Pattern with tag nodes",
		Tags:    []string{"go", "infra", " padded "},
	})
	// Rewrite replaces the tag set, not merges it.
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "pattern",
		Title:   "Tagged pattern",
		Content: "Pattern with tag nodes",
		Tags:    []string{"infra", "neo4j"},
	})

	records := runRaw(t, ctx, cfg, `
		MATCH (m:MemoryItem {title: 'Tagged pattern'})-[:TAGGED_WITH]->(t:Tag)
		RETURN collect(t.name) AS tags`, nil)
	if len(records) != 1 {
		t.Fatalf("tag query: want 1 record, got %d", len(records))
	}
	raw, _ := records[0].Get("tags")
	var tags []string
	for _, v := range raw.([]any) {
		tags = append(tags, v.(string))
	}
	sort.Strings(tags)
	want := []string{"infra", "neo4j"}
	if len(tags) != len(want) || tags[0] != want[0] || tags[1] != want[1] {
		t.Errorf("reconciled tags: want %v, got %v", want, tags)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Read
// ─────────────────────────────────────────────────────────────────────────────

func TestReadMemory_PreferCompact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("Graph databases keep relationships first-class. ", 8)
	res := mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "answer",
		Title:   "Why a graph store",
		Content: long,
		Tags:    []string{"storage"},
		Pinned:  true,
	})

	item, err := store.ReadMemory(ctx, res.ID, shape.PreferCompact)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if item == nil {
		t.Fatal("ReadMemory: expected item, got nil")
	}
	if !strings.HasSuffix(item.ContentCompact, "…") {
		t.Errorf("auto-compacted content should end with the ellipsis, got %q", item.ContentCompact)
	}
	if item.Content != item.ContentCompact {
		t.Errorf("prefer compact: content should be the compact form, got %q", item.Content)
	}
	if item.ContentFull != strings.TrimSpace(long) {
		t.Error("content_full should carry the stored body unchanged")
	}
	if item.Pinned != 1 {
		t.Errorf("pinned flag: want 1, got %d", item.Pinned)
	}

	var tags []string
	if err := json.Unmarshal([]byte(item.Tags), &tags); err != nil {
		t.Fatalf("tags should be a JSON-encoded array, got %q: %v", item.Tags, err)
	}
	if len(tags) != 1 || tags[0] != "storage" {
		t.Errorf("tags: want [storage], got %v", tags)
	}
}

func TestReadMemory_Missing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.ReadMemory(ctx, "4:00000000-0000-0000-0000-000000000000:9999", shape.PreferFull)
	if err != nil {
		t.Fatalf("ReadMemory missing: unexpected error: %v", err)
	}
	if item != nil {
		t.Errorf("ReadMemory missing: want nil, got %+v", item)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

func TestSearchMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "decision",
		Title:   "Graph storage",
		Content: "Using a knowledge graph for memory storage",
		Tags:    []string{"neo4j", "graph"},
		Pinned:  true,
	})
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "Deployment runbook",
		Content: "Roll the API pods one at a time",
	})

	results, err := store.SearchMemory(ctx, memory.SearchParams{Query: "knowledge graph memory", Limit: 5})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("SearchMemory: expected results, got none")
	}
	found := false
	for _, r := range results {
		if r.Title == "Graph storage" {
			found = true
			if r.Pinned != 1 {
				t.Errorf("pinned flag: want 1, got %d", r.Pinned)
			}
			if r.HasFull {
				t.Error("full content emitted verbatim should not flag has_full")
			}
		}
	}
	if !found {
		t.Errorf("expected %q among results %v", "Graph storage", results)
	}
}

func TestSearchMemory_EmptyQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, query := range []string{"", "   "} {
		results, err := store.SearchMemory(ctx, memory.SearchParams{Query: query, Limit: 5})
		if err != nil {
			t.Fatalf("SearchMemory(%q): %v", query, err)
		}
		if results == nil {
			t.Fatalf("SearchMemory(%q): want non-nil empty slice", query)
		}
		if len(results) != 0 {
			t.Errorf("SearchMemory(%q): want 0 results, got %d", query, len(results))
		}
	}
}

func TestSearchMemory_PreferCompact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("Every sentence here pads the body well past the snippet bound. ", 8)
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "answer",
		Title:   "Long answer",
		Content: long,
	})

	results, err := store.SearchMemory(ctx, memory.SearchParams{
		Query:        "snippet bound",
		Limit:        5,
		Prefer:       shape.PreferCompact,
		SnippetChars: 400,
	})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	r := results[0]
	if !strings.HasSuffix(r.Content, "…") {
		t.Errorf("compact content should end with the ellipsis, got %q", r.Content)
	}
	if !r.HasFull {
		t.Error("shaped-down result should flag has_full")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Bootstrap
// ─────────────────────────────────────────────────────────────────────────────

func TestBootstrap_PinnedAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "decision",
		Title:   "Pinned decision",
		Content: "Pinned item",
		Pinned:  true,
	})
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "Regular note",
		Content: "Recent item",
	})

	res, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10,
		LimitRecent: 10,
		Mode:        shape.ModeFull,
		MaxItems:    15,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !containsTitle(res.Pinned, "Pinned decision") {
		t.Errorf("pinned: want %q in %v", "Pinned decision", itemTitles(res.Pinned))
	}
	if !containsTitle(res.Recent, "Regular note") {
		t.Errorf("recent: want %q in %v", "Regular note", itemTitles(res.Recent))
	}
	// Pinned items never repeat in the recent list.
	if containsTitle(res.Recent, "Pinned decision") {
		t.Errorf("recent must not repeat pinned items: %v", itemTitles(res.Recent))
	}
	if res.SessionsIncluded || res.LastSession != nil {
		t.Error("sessions were not requested")
	}
}

func TestBootstrap_HybridMode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	command := "kubectl rollout restart deploy/api"
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "command",
		Title:   "Restart the API",
		Content: command,
	})
	longNote := strings.Repeat("Notes ramble on about context that nobody compacted by hand. ", 8)
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "Rambling note",
		Content: longNote,
	})

	res, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10,
		LimitRecent: 10,
		Mode:        shape.ModeHybrid,
		MaxItems:    15,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	for _, it := range res.Recent {
		switch it.Title {
		case "Restart the API":
			if it.Content != command {
				t.Errorf("short command in hybrid mode: want full content, got %q", it.Content)
			}
			if it.HasFull {
				t.Error("full command content should not flag has_full")
			}
		case "Rambling note":
			if !strings.HasSuffix(it.Content, "…") {
				t.Errorf("long note in hybrid mode: want compact content, got %q", it.Content)
			}
			if !it.HasFull {
				t.Error("compacted note should flag has_full")
			}
		}
	}
}

func TestBootstrap_MaxItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three", "four", "five"} {
		mustWrite(t, ctx, store, memory.WriteParams{
			Kind:    "note",
			Title:   title,
			Content: "body of " + title,
		})
	}

	res, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10,
		LimitRecent: 10,
		Mode:        shape.ModeFull,
		MaxItems:    3,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if got := len(res.Pinned) + len(res.Recent); got != 3 {
		t.Errorf("max_items=3: want 3 items total, got %d (pinned %v, recent %v)",
			got, itemTitles(res.Pinned), itemTitles(res.Recent))
	}
}

func TestBootstrap_TokenBudget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "big",
		Content: strings.Repeat("x", 800),
	})
	mustWrite(t, ctx, store, memory.WriteParams{
		Kind:    "note",
		Title:   "small",
		Content: strings.Repeat("y", 40),
	})

	// Budget of 30 tokens = 120 chars: the 800-char item cannot fit, the
	// 40-char one can.
	res, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10,
		LimitRecent: 10,
		Mode:        shape.ModeFull,
		MaxTokens:   30,
		MaxItems:    15,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if containsTitle(res.Recent, "big") {
		t.Errorf("over-budget item admitted: %v", itemTitles(res.Recent))
	}
	if !containsTitle(res.Recent, "small") {
		t.Errorf("budget should skip, not stop: want %q in %v", "small", itemTitles(res.Recent))
	}

	// No budget: both fit.
	res, err = store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10,
		LimitRecent: 10,
		Mode:        shape.ModeFull,
		MaxItems:    15,
	})
	if err != nil {
		t.Fatalf("Bootstrap without budget: %v", err)
	}
	if !containsTitle(res.Recent, "big") || !containsTitle(res.Recent, "small") {
		t.Errorf("without budget both items should appear, got %v", itemTitles(res.Recent))
	}
}

func TestBootstrap_IncludeSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CommitSession(ctx, memory.CommitParams{
		WorkspaceHint: "proj",
		Summary:       "first session",
		Decisions:     []string{"use a graph"},
	})
	if err != nil {
		t.Fatalf("CommitSession: %v", err)
	}

	res, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned:     10,
		LimitRecent:     10,
		WorkspaceHint:   "proj",
		Mode:            shape.ModeFull,
		MaxItems:        15,
		IncludeSessions: true,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !res.SessionsIncluded {
		t.Error("SessionsIncluded should mirror the request flag")
	}
	if res.LastSession == nil {
		t.Fatal("want last session, got nil")
	}
	if res.LastSession.Summary != "first session" {
		t.Errorf("last session summary: want %q, got %q", "first session", res.LastSession.Summary)
	}

	// A workspace with no history still reports the flag, with no session.
	res, err = store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned:     10,
		LimitRecent:     10,
		WorkspaceHint:   "empty-workspace",
		Mode:            shape.ModeFull,
		MaxItems:        15,
		IncludeSessions: true,
	})
	if err != nil {
		t.Fatalf("Bootstrap empty workspace: %v", err)
	}
	if !res.SessionsIncluded {
		t.Error("SessionsIncluded should be set even when no session exists")
	}
	if res.LastSession != nil {
		t.Errorf("want nil last session, got %+v", res.LastSession)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

func TestCommitSession_FollowsChain(t *testing.T) {
	store := newTestStore(t)
	cfg := testConfig(t)
	ctx := context.Background()

	for _, summary := range []string{"first", "second", "third"} {
		err := store.CommitSession(ctx, memory.CommitParams{
			WorkspaceHint: "chain",
			Summary:       summary,
			Decisions:     []string{"decision in " + summary},
			NextSteps:     []string{"next after " + summary},
		})
		if err != nil {
			t.Fatalf("CommitSession %q: %v", summary, err)
		}
	}
	// An unrelated workspace must not join the chain.
	if err := store.CommitSession(ctx, memory.CommitParams{WorkspaceHint: "other", Summary: "elsewhere"}); err != nil {
		t.Fatalf("CommitSession other: %v", err)
	}

	sessions, err := store.LastSession(ctx, memory.LastSessionParams{WorkspaceHint: "chain", Limit: 3})
	if err != nil {
		t.Fatalf("LastSession: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("want 3 sessions, got %d", len(sessions))
	}
	if sessions[0].Summary != "third" || sessions[2].Summary != "first" {
		t.Errorf("want newest first, got %q .. %q", sessions[0].Summary, sessions[2].Summary)
	}
	if len(sessions[0].Decisions) != 1 || sessions[0].Decisions[0] != "decision in third" {
		t.Errorf("decisions round-trip: got %v", sessions[0].Decisions)
	}
	if len(sessions[0].NextSteps) != 1 || sessions[0].NextSteps[0] != "next after third" {
		t.Errorf("next steps round-trip: got %v", sessions[0].NextSteps)
	}

	// Three sessions in one workspace chain into exactly two FOLLOWS edges.
	records := runRaw(t, ctx, cfg, `
		MATCH (a:Session {workspace_hint: 'chain'})-[:FOLLOWS]->(b:Session)
		RETURN count(*) AS edges`, nil)
	edges, _ := records[0].Get("edges")
	if edges.(int64) != 2 {
		t.Errorf("FOLLOWS edges: want 2, got %v", edges)
	}
}

func TestLastSession_Defaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitSession(ctx, memory.CommitParams{Summary: "defaulted workspace"}); err != nil {
		t.Fatalf("CommitSession: %v", err)
	}

	// Empty workspace resolves to "global"; limit 0 clamps to 1.
	sessions, err := store.LastSession(ctx, memory.LastSessionParams{})
	if err != nil {
		t.Fatalf("LastSession: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("want 1 session, got %d", len(sessions))
	}
	if sessions[0].WorkspaceHint != "global" {
		t.Errorf("workspace: want %q, got %q", "global", sessions[0].WorkspaceHint)
	}
	if sessions[0].Decisions == nil || sessions[0].NextSteps == nil {
		t.Error("empty decision and next-step lists must be non-nil")
	}

	missing, err := store.LastSession(ctx, memory.LastSessionParams{WorkspaceHint: "never-used"})
	if err != nil {
		t.Fatalf("LastSession missing: %v", err)
	}
	if missing == nil || len(missing) != 0 {
		t.Errorf("missing workspace: want empty non-nil slice, got %v", missing)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Multi-tenant isolation
// ─────────────────────────────────────────────────────────────────────────────

func TestMultiTenant_SpaceIsolation(t *testing.T) {
	store := newMultiTenantStore(t)
	cfg := testConfig(t)
	ctx := context.Background()

	alice := &memory.RequestContext{UserID: "alice"}
	team := &memory.RequestContext{SpaceID: "team:rocket"}

	// The same (kind, title) creates a distinct item per space.
	first := mustWrite(t, ctx, store, memory.WriteParams{
		Kind: "note", Title: "Shared title", Content: "alice's copy", Caller: alice,
	})
	second := mustWrite(t, ctx, store, memory.WriteParams{
		Kind: "note", Title: "Shared title", Content: "team's copy", Caller: team,
	})
	if first.Action != memory.ActionCreated || second.Action != memory.ActionCreated {
		t.Errorf("per-space dedup: want two creates, got %q and %q", first.Action, second.Action)
	}
	if first.ID == second.ID {
		t.Error("per-space dedup: want distinct items")
	}

	// Search is visibility-filtered.
	aliceResults, err := store.SearchMemory(ctx, memory.SearchParams{Query: "Shared title", Limit: 10, Caller: alice})
	if err != nil {
		t.Fatalf("SearchMemory alice: %v", err)
	}
	if len(aliceResults) != 1 || aliceResults[0].Content != "alice's copy" {
		t.Errorf("alice should see only her copy, got %+v", aliceResults)
	}

	anonResults, err := store.SearchMemory(ctx, memory.SearchParams{Query: "Shared title", Limit: 10})
	if err != nil {
		t.Fatalf("SearchMemory anon: %v", err)
	}
	if len(anonResults) != 0 {
		t.Errorf("anonymous caller resolves to the global space and should see nothing, got %d", len(anonResults))
	}

	// A caller granted both spaces sees both items.
	shared := &memory.RequestContext{UserID: "alice", AllowedSpaces: []string{"personal:alice", "team:rocket"}}
	sharedResults, err := store.SearchMemory(ctx, memory.SearchParams{Query: "Shared title", Limit: 10, Caller: shared})
	if err != nil {
		t.Fatalf("SearchMemory shared: %v", err)
	}
	if len(sharedResults) != 2 {
		t.Errorf("shared caller: want 2 results, got %d", len(sharedResults))
	}

	// Bootstrap applies the same scoping.
	boot, err := store.Bootstrap(ctx, memory.BootstrapParams{
		LimitPinned: 10, LimitRecent: 10, Mode: shape.ModeFull, MaxItems: 15, Caller: alice,
	})
	if err != nil {
		t.Fatalf("Bootstrap alice: %v", err)
	}
	if len(boot.Recent) != 1 || boot.Recent[0].Content != "alice's copy" {
		t.Errorf("bootstrap should be space-scoped, got %v", itemTitles(boot.Recent))
	}

	// Items hang off their space node.
	records := runRaw(t, ctx, cfg, `
		MATCH (s:Space {id: 'personal:alice'})-[:CONTAINS]->(m:MemoryItem)
		RETURN count(m) AS n`, nil)
	n, _ := records[0].Get("n")
	if n.(int64) != 1 {
		t.Errorf("CONTAINS edges for personal:alice: want 1, got %v", n)
	}
}

func TestMultiTenant_SessionScoping(t *testing.T) {
	store := newMultiTenantStore(t)
	ctx := context.Background()

	alice := &memory.RequestContext{UserID: "alice"}
	team := &memory.RequestContext{SpaceID: "team:rocket"}

	if err := store.CommitSession(ctx, memory.CommitParams{
		WorkspaceHint: "proj", Summary: "alice session", Caller: alice,
	}); err != nil {
		t.Fatalf("CommitSession alice: %v", err)
	}
	if err := store.CommitSession(ctx, memory.CommitParams{
		WorkspaceHint: "proj", Summary: "team session", Caller: team,
	}); err != nil {
		t.Fatalf("CommitSession team: %v", err)
	}

	sessions, err := store.LastSession(ctx, memory.LastSessionParams{
		WorkspaceHint: "proj", Limit: 5, Caller: alice,
	})
	if err != nil {
		t.Fatalf("LastSession alice: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Summary != "alice session" {
		t.Errorf("session scoping: want only alice's session, got %+v", sessions)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func TestInstallSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// newTestStore already installed the schema once.
	if err := store.InstallSchema(ctx); err != nil {
		t.Fatalf("second InstallSchema: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
