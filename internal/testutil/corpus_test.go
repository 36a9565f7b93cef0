package testutil

import (
	"os"
	"testing"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/runtime"
)

func TestCorpusFilesDiscovered(t *testing.T) {
	files, err := CorpusFiles("basic")
	if err != nil {
		t.Fatalf("CorpusFiles: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected at least 2 corpus files, got %d", len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("corpus file missing: %v", err)
		}
	}
}

// TestCorpusIdempotentMerge exercises spec §8's idempotent-merge property
// across a realistic multi-file set: building the same ordered file list
// twice must produce the same node/diagnostic shape both times.
func TestCorpusIdempotentMerge(t *testing.T) {
	paths, err := CorpusFiles("basic")
	if err != nil {
		t.Fatalf("CorpusFiles: %v", err)
	}

	sources := make(map[string][]byte, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", p, err)
		}
		sources[p] = b
	}

	build := func() (int, string) {
		tree, diags := RunPipeline(sources, paths)
		var count int
		tree.Walk(func(*runtime.Node) { count++ })
		return count, FormatDiagnostics(diags)
	}

	n1, d1 := build()
	n2, d2 := build()

	if n1 != n2 {
		t.Fatalf("node count differs across identical runs: %d vs %d", n1, n2)
	}
	if d1 != d2 {
		t.Fatalf("diagnostics differ across identical runs:\n--- run 1 ---\n%s--- run 2 ---\n%s", d1, d2)
	}
}

// TestCorpusOverrideResolvesAcrossFiles checks that a later file's &label
// reference resolves against an earlier file's node, per spec §4.4's
// caller-supplied include order.
func TestCorpusOverrideResolvesAcrossFiles(t *testing.T) {
	paths, err := CorpusFiles("basic")
	if err != nil {
		t.Fatalf("CorpusFiles: %v", err)
	}
	sources := make(map[string][]byte, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", p, err)
		}
		sources[p] = b
	}

	tree, diags := RunPipeline(sources, paths)
	for _, d := range diags {
		if d.Kinds[0].String() == "UNABLE_TO_RESOLVE_CHILD_NODE" {
			t.Fatalf("unexpected unresolved reference: %+v", d)
		}
	}

	uart0 := tree.ResolveLabel("uart0")
	if uart0 == nil {
		t.Fatal("expected label \"uart0\" to resolve")
	}
	status := uart0.PropertyByName("status")
	if status == nil || status.CurrentAst == nil {
		t.Fatal("expected a current \"status\" property on uart0")
	}
	if len(status.CurrentAst.Values) != 1 {
		t.Fatalf("status values = %d, want 1", len(status.CurrentAst.Values))
	}
	sv, ok := status.CurrentAst.Values[0].(*ast.StringValue)
	if !ok || sv.Value != "okay" {
		t.Fatalf("status = %+v, want the overlay's \"okay\" to win over the base's \"disabled\"", status.CurrentAst.Values[0])
	}
}
