// Package cache implements the process-wide TokenizedDocumentCache: a
// URI-keyed map of {contentHash, tokens, parse}, invalidated whenever a
// document's content hash changes.
package cache

import (
	"crypto/sha256"
	"sync"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
)

// ParseFunc computes tokens, an AST, and diagnostics for one source file.
// Cache is agnostic to how parsing works so that internal/parser can
// depend on Cache without Cache depending back on internal/parser;
// internal/parser.CacheParseFunc supplies the concrete implementation.
type ParseFunc func(uri string, src []byte) ([]lexer.Token, *ast.RootDoc, []diag.Diagnostic)

// Entry is one cached document's tokenization and parse result.
type Entry struct {
	Hash        [32]byte
	Tokens      []lexer.Token
	Root        *ast.RootDoc
	Diagnostics []diag.Diagnostic
}

// Cache is the process-wide document cache, grounded on the teacher's
// SnapshotStore (internal/lsp/snapshots.go): a sync.RWMutex-guarded map
// with single-writer-per-URI discipline; readers observe a published
// *Entry snapshot and never see a partially-written one.
type Cache struct {
	parse ParseFunc

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New constructs a Cache that uses parse to (re)compute entries.
func New(parse ParseFunc) *Cache {
	return &Cache{parse: parse, entries: make(map[string]*Entry)}
}

// GetOrCreate returns the cached entry for uri if its content hash matches
// text's hash, recomputing tokens and the parse otherwise.
func (c *Cache) GetOrCreate(uri string, text []byte) *Entry {
	hash := sha256.Sum256(text)

	c.mu.RLock()
	existing := c.entries[uri]
	c.mu.RUnlock()
	if existing != nil && existing.Hash == hash {
		return existing
	}

	tokens, root, diags := c.parse(uri, text)
	entry := &Entry{Hash: hash, Tokens: tokens, Root: root, Diagnostics: diags}

	c.mu.Lock()
	c.entries[uri] = entry
	c.mu.Unlock()
	return entry
}

// Peek returns the cached entry for uri without recomputing anything, or
// nil if uri has never been parsed.
func (c *Cache) Peek(uri string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[uri]
}

// Reset clears every cached entry. Only safe between top-level operations
// (mirrors resetTokenizedDocumentProvider): intended for test teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}
