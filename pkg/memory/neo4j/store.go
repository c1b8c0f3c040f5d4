package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/MrWong99/mnemosyne/pkg/memory"
)

// Compile-time interface check.
var _ memory.Store = (*Store)(nil)

// timestampLayout serialises store timestamps as RFC 3339 UTC with
// fixed-width microseconds, so the lexicographic order of the stored strings
// matches chronological order (created_at/updated_at are compared and sorted
// as strings in Cypher).
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// nowTimestamp returns the current instant in the stored timestamp form.
func nowTimestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// Config holds the connection settings for [NewStore].
type Config struct {
	// URI is the bolt/neo4j endpoint, e.g. "bolt://localhost:7687".
	URI string

	// User and Password authenticate against the database.
	User     string
	Password string

	// Database selects the Neo4j database all sessions operate on.
	Database string

	// MultiTenant scopes every memory item and session to the caller's
	// space and widens the dedup key to (space, kind, title). The flag is
	// fixed for the lifetime of the store; flipping it requires a data
	// migration.
	MultiTenant bool

	// OnFulltextFallback, when non-nil, is invoked each time a search falls
	// back to substring matching because the fulltext index was unusable.
	OnFulltextFallback func(ctx context.Context)
}

// Store is the Neo4j-backed [memory.Store]. It holds a single driver whose
// connection pool is shared by all operations; every public method opens its
// own short-lived session so concurrent requests never share transactional
// state.
type Store struct {
	driver      neo4j.DriverWithContext
	database    string
	multiTenant bool

	onFulltextFallback func(ctx context.Context)
}

// NewStore creates a driver for cfg and verifies connectivity with a trivial
// query. The returned store is ready for use but has not touched the schema;
// call [Store.InstallSchema] before serving traffic against a fresh
// database.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j store: create driver: %w", err)
	}

	s := &Store{
		driver:             driver,
		database:           cfg.Database,
		multiTenant:        cfg.MultiTenant,
		onFulltextFallback: cfg.OnFulltextFallback,
	}
	if err := s.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Ping verifies that the database answers a trivial read. The readiness
// probe calls this on every check.
func (s *Store) Ping(ctx context.Context) error {
	sess := s.readSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "RETURN 1", nil)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j store: ping: %w", err)
	}
	return nil
}

// Close shuts down the driver and its connection pool. The store must not be
// used afterwards.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
}

func (s *Store) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
}

// runAutocommit executes a single statement outside a managed transaction
// and drains its result. Schema commands require this execution mode.
func runAutocommit(ctx context.Context, sess neo4j.SessionWithContext, stmt string) error {
	res, err := sess.Run(ctx, stmt, nil)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
