package runtime

import (
	"testing"

	"github.com/devicetree-lang/dts-core/internal/ast"
)

func TestGetOrCreateChildIsIdempotent(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	a := tree.Root.GetOrCreateChild("foo")
	b := tree.Root.GetOrCreateChild("foo")
	if a != b {
		t.Fatal("GetOrCreateChild returned distinct nodes for the same name")
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("Children = %d, want 1", len(tree.Root.Children))
	}
	if got := a.PathString(); got != "/foo" {
		t.Fatalf("PathString() = %q, want \"/foo\"", got)
	}
}

func TestSetPropertyChainsReplaces(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	n := tree.Root.GetOrCreateChild("foo")

	d1 := &ast.DtcProperty{PropertyName: "a"}
	cur1, prev1 := n.SetProperty("f1.dts", d1)
	if prev1 != nil {
		t.Fatalf("expected no previous definition, got %+v", prev1)
	}
	if cur1.CurrentAst != d1 {
		t.Fatal("expected current property to wrap the first definition")
	}

	d2 := &ast.DtcProperty{PropertyName: "a"}
	cur2, prev2 := n.SetProperty("f2.dts", d2)
	if prev2 != cur1 {
		t.Fatal("expected previous definition to be the first Property")
	}
	if cur2.CurrentAst != d2 {
		t.Fatal("expected current property to wrap the second definition")
	}
	if len(cur2.Replaces) != 1 || cur2.Replaces[0] != cur1 {
		t.Fatalf("Replaces = %+v, want [cur1]", cur2.Replaces)
	}
	if len(n.Properties) != 1 {
		t.Fatalf("Properties = %d, want 1 (in-place replace, not append)", len(n.Properties))
	}
	if n.PropertyByName("a") != cur2 {
		t.Fatal("PropertyByName should return the latest definition")
	}
}

func TestRemoveChildAndProperty(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	foo := tree.Root.GetOrCreateChild("foo")
	foo.SetProperty("f.dts", &ast.DtcProperty{PropertyName: "a"})

	if tree.Root.RemoveChild("missing") != nil {
		t.Fatal("RemoveChild(missing) should return nil")
	}
	removed := tree.Root.RemoveChild("foo")
	if removed != foo {
		t.Fatal("RemoveChild should return the detached node")
	}
	if tree.Root.ChildByName("foo") != nil {
		t.Fatal("expected \"foo\" to be gone from the child index")
	}
	if len(tree.Root.Children) != 0 {
		t.Fatalf("Children = %d, want 0", len(tree.Root.Children))
	}

	if foo.RemoveProperty("missing") != nil {
		t.Fatal("RemoveProperty(missing) should return nil")
	}
	p := foo.RemoveProperty("a")
	if p == nil || p.Name != "a" {
		t.Fatalf("RemoveProperty(a) = %+v, want the removed property", p)
	}
	if foo.PropertyByName("a") != nil {
		t.Fatal("expected \"a\" to be gone after removal")
	}
}

func TestResolveLabelAndResolvePath(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	uart := tree.Root.GetOrCreateChild("soc").GetOrCreateChild("serial@0")
	uart.AddLabels("f.dts", []*ast.LabelAssign{{Name: "uart0"}})

	if got := tree.ResolveLabel("uart0"); got != uart {
		t.Fatalf("ResolveLabel(uart0) = %v, want %v", got, uart)
	}
	if got := tree.ResolveLabel("missing"); got != nil {
		t.Fatalf("ResolveLabel(missing) = %v, want nil", got)
	}
	if got := tree.ResolvePath([]string{"soc", "serial@0"}); got != uart {
		t.Fatalf("ResolvePath = %v, want %v", got, uart)
	}
	if got := tree.ResolvePath([]string{"soc", "missing"}); got != nil {
		t.Fatalf("ResolvePath(missing segment) = %v, want nil", got)
	}
}

func TestWalkVisitsInInsertionOrder(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Root.GetOrCreateChild("a")
	tree.Root.GetOrCreateChild("b").GetOrCreateChild("c")

	var visited []string
	tree.Walk(func(n *Node) { visited = append(visited, n.PathString()) })

	want := []string{"/", "/a", "/b", "/b/c"}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited = %v, want %v", visited, want)
		}
	}
}
