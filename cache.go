package rowfilter

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/bobg/rowfilter/ast"
	"github.com/bobg/rowfilter/parser"
)

const maxCachedQueries = 1000

type cacheKey struct {
	dialect Dialect
	sql     string
}

// parseCache implements a lru cache of parsed queries.
// Entries are never handed out directly:
// callers get copies they are free to mutate.
type parseCache struct {
	mu    sync.Mutex
	cache *lru.Cache // lazily initialized
}

func (pc *parseCache) lookup(key cacheKey) ([]ast.Statement, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache == nil {
		return nil, false
	}
	v, ok := pc.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneAll(v.([]ast.Statement)), true
}

func (pc *parseCache) add(key cacheKey, stmts []ast.Statement) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache == nil {
		pc.cache = lru.New(maxCachedQueries)
	}
	pc.cache.Add(key, cloneAll(stmts))
}

// parse parses sql in dialect d, consulting and filling the cache.
// Failures are not cached.
func (pc *parseCache) parse(sql string, d Dialect) ([]ast.Statement, error) {
	key := cacheKey{dialect: d, sql: sql}
	if stmts, ok := pc.lookup(key); ok {
		return stmts, nil
	}
	stmts, err := parser.Parse(sql, d)
	if err != nil {
		return nil, err
	}
	pc.add(key, stmts)
	return stmts, nil
}

func cloneAll(stmts []ast.Statement) []ast.Statement {
	result := make([]ast.Statement, 0, len(stmts))
	for _, stmt := range stmts {
		result = append(result, ast.Clone(stmt))
	}
	return result
}
