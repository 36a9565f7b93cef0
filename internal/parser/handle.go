package parser

import (
	"context"
	"fmt"
	"sync"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/cache"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/source"
)

// CacheParseFunc adapts ParseSource to the cache.ParseFunc shape. Callers
// build their *cache.Cache with this function so Cache never needs to
// import internal/parser.
func CacheParseFunc(uri string, src []byte) ([]lexer.Token, *ast.RootDoc, []diag.Diagnostic) {
	res := ParseSource(uri, src)
	return res.Tokens, res.Root, res.Diagnostics
}

// Outcome is what awaiting a Handle yields once parsing reaches a stable
// state: the root document and its accumulated issues.
type Outcome struct {
	RootDocument *ast.RootDoc
	Issues       []diag.Diagnostic
}

// Handle is a one-shot future over a single file's parse. Spec's
// concurrency model explicitly allows realizing this either as a
// suspendable task, a blocking function, or a callback-registered
// promise; this Handle picks the blocking-function realization, since
// nothing in this module needs genuine cross-file parallelism and a
// synchronous implementation is the simplest one that is still race-free
// under concurrent Wait calls.
type Handle struct {
	once   sync.Once
	done   chan struct{}
	result Outcome
	err    error

	mu        sync.Mutex
	cancelled bool

	run func(ctx context.Context) (Outcome, error)
}

// New constructs a Handle for uri. macroOverrides and includePaths are
// accepted and ignored: nothing is expanded or resolved here, and the
// parser only records `/include/` targets and `#`-directive lines on the
// RootDoc (spec §1 Non-goals on filesystem/macro resolution).
func New(c *cache.Cache, provider source.Provider, uri string, macroOverrides map[string]string, includePaths []string) *Handle {
	h := &Handle{done: make(chan struct{})}
	h.run = func(ctx context.Context) (Outcome, error) {
		src, err := provider.Read(ctx, uri)
		if err != nil {
			// Spec §7: only unrecoverable I/O errors (source unreadable)
			// surface as a fatal result-level error; this is never
			// disguised as a diagnostic on a fabricated, empty RootDoc.
			return Outcome{}, fmt.Errorf("parser: read %s: %w", uri, err)
		}
		entry := c.GetOrCreate(uri, src)
		return Outcome{RootDocument: entry.Root, Issues: entry.Diagnostics}, nil
	}
	_ = macroOverrides
	_ = includePaths
	return h
}

// Wait blocks until the parse completes, running it on the first call and
// memoizing the result for every subsequent call. Because this Handle
// realizes the one-shot future as a direct blocking call rather than a
// suspendable task, Wait does not itself interleave with ctx
// cancellation while the parse is running (the parse is not a
// long-running I/O operation in this module's scope); ctx is checked
// before running and is threaded into the SourceProvider read, and a
// context already done when Wait is called returns immediately.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	h.once.Do(func() {
		h.result, h.err = h.run(ctx)
		close(h.done)
	})
	<-h.done

	h.mu.Lock()
	cancelled := h.cancelled
	h.mu.Unlock()
	if cancelled {
		return Outcome{}, context.Canceled
	}
	if h.err != nil {
		return Outcome{}, h.err
	}
	return h.result, nil
}

// Cancel requests cooperative cancellation. A Handle that has already
// published its result before Cancel is called keeps that result for
// Wait callers that already observed it, but any Wait call racing with or
// following Cancel sees Cancelled instead, and no caller is handed a
// partially-built AST.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
}
