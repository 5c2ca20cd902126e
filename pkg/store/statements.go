package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStatementCacheSize bounds the prepared statements a Store keeps.
const DefaultStatementCacheSize = 16

// cachedStmt is a prepared statement with the number of callers using it.
// An evicted statement is closed once the last caller releases it.
type cachedStmt struct {
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// statementCache keeps prepared statements keyed by query text. The least
// recently used statement is evicted when the cache is full. All fields of
// cachedStmt are guarded by mu.
type statementCache struct {
	db    *sql.DB
	mu    sync.Mutex
	cache *lru.Cache[string, *cachedStmt]
}

func newStatementCache(db *sql.DB, size int) (*statementCache, error) {
	if size <= 0 {
		size = DefaultStatementCacheSize
	}
	// The callback runs inside Add and Purge, with mu held.
	cache, err := lru.NewWithEvict(size, func(query string, cs *cachedStmt) {
		cs.evicted = true
		if cs.refs == 0 {
			closeStmt(cs.stmt)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create statement cache: %w", err)
	}
	return &statementCache{db: db, cache: cache}, nil
}

func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		log.Warnf("Failed to close evicted statement: %v", err)
	}
}

// acquire returns the cached statement for query, preparing it on a miss.
// The caller must release it.
func (c *statementCache) acquire(ctx context.Context, query string) (*cachedStmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cs, ok := c.cache.Get(query); ok {
		cs.refs++
		return cs, nil
	}
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	cs := &cachedStmt{stmt: stmt, refs: 1}
	c.cache.Add(query, cs)
	return cs, nil
}

// lookup returns the cached statement for query without preparing it.
func (c *statementCache) lookup(query string) (*cachedStmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.cache.Get(query)
	if ok {
		cs.refs++
	}
	return cs, ok
}

func (c *statementCache) release(cs *cachedStmt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cs.refs--
	if cs.evicted && cs.refs == 0 {
		closeStmt(cs.stmt)
	}
}

// run calls fn with the cached statement for query. The statement stays
// open until fn returns, even if it is evicted meanwhile.
func (c *statementCache) run(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	cs, err := c.acquire(ctx, query)
	if err != nil {
		return err
	}
	defer c.release(cs)
	return fn(cs.stmt)
}

// runTx calls fn with the statement for query bound to tx. A query missing
// from the cache is prepared on tx itself, since the pool may have no other
// connection.
func (c *statementCache) runTx(ctx context.Context, tx *sql.Tx, query string, fn func(*sql.Stmt) error) error {
	var stmt *sql.Stmt
	if cs, ok := c.lookup(query); ok {
		defer c.release(cs)
		stmt = tx.StmtContext(ctx, cs.stmt)
	} else {
		prepared, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		stmt = prepared
	}
	defer stmt.Close()
	return fn(stmt)
}

// warm prepares queries ahead of a transaction that will use them.
func (c *statementCache) warm(ctx context.Context, queries ...string) error {
	for _, query := range queries {
		cs, err := c.acquire(ctx, query)
		if err != nil {
			return err
		}
		c.release(cs)
	}
	return nil
}

func (c *statementCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// close evicts every cached statement.
func (c *statementCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
