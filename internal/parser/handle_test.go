package parser

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/devicetree-lang/dts-core/internal/cache"
	"github.com/devicetree-lang/dts-core/internal/source"
)

func TestHandleWaitReturnsParsedOutcome(t *testing.T) {
	t.Parallel()

	provider := source.NewStatic(map[string][]byte{"t.dts": []byte("/{};")})
	c := cache.New(CacheParseFunc)

	h := New(c, provider, "t.dts", nil, nil)
	outcome, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if outcome.RootDocument == nil {
		t.Fatal("expected a non-nil RootDocument")
	}
	if len(outcome.RootDocument.Declarations) != 1 {
		t.Fatalf("declarations = %d, want 1", len(outcome.RootDocument.Declarations))
	}
}

func TestHandleWaitMemoizesAcrossConcurrentCallers(t *testing.T) {
	t.Parallel()

	provider := source.NewStatic(map[string][]byte{"t.dts": []byte("/{ a = <1>; };")})
	c := cache.New(CacheParseFunc)
	h := New(c, provider, "t.dts", nil, nil)

	const n = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = h.Wait(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Wait() [%d] error = %v", i, err)
		}
		if outcomes[i].RootDocument != outcomes[0].RootDocument {
			t.Fatalf("Wait() [%d] returned a different RootDocument than [0]; expected memoized result", i)
		}
	}
}

// TestHandleWaitSurfacesReadErrorAsFatalError asserts spec §7: unreadable
// source is a fatal result-level error, never a diagnostic disguised on a
// fabricated RootDoc.
func TestHandleWaitSurfacesReadErrorAsFatalError(t *testing.T) {
	t.Parallel()

	provider := source.NewStatic(nil) // "missing.dts" was never registered.
	c := cache.New(CacheParseFunc)
	h := New(c, provider, "missing.dts", nil, nil)

	outcome, err := h.Wait(context.Background())
	if err == nil {
		t.Fatal("expected a non-nil error for unreadable source")
	}
	if outcome.RootDocument != nil {
		t.Fatalf("expected a zero Outcome on error, got %+v", outcome)
	}
	if len(outcome.Issues) != 0 {
		t.Fatalf("expected no issues on a fatal read error, got %+v", outcome.Issues)
	}
}

func TestHandleCancelAfterWaitStillReturnsCancelled(t *testing.T) {
	t.Parallel()

	provider := source.NewStatic(map[string][]byte{"t.dts": []byte("/{};")})
	c := cache.New(CacheParseFunc)
	h := New(c, provider, "t.dts", nil, nil)

	if _, err := h.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}
	h.Cancel()

	_, err := h.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() after Cancel() error = %v, want context.Canceled", err)
	}
}

func TestHandleWaitRespectsAlreadyCancelledContext(t *testing.T) {
	t.Parallel()

	provider := source.NewStatic(map[string][]byte{"t.dts": []byte("/{};")})
	c := cache.New(CacheParseFunc)
	h := New(c, provider, "t.dts", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Wait(ctx); err == nil {
		t.Fatal("expected an error when Wait is called with an already-cancelled context")
	}
}
