// Package runtime defines the RuntimeTree: the single logical device tree
// produced by folding one or more parsed files together (see
// internal/context), with override ("last-wins") property semantics and
// node/property deletion already applied. A Tree is immutable once
// internal/context.Build returns it, except that the validator appends to
// a separate diagnostics collection rather than mutating the tree itself.
package runtime

import (
	"strings"

	"github.com/devicetree-lang/dts-core/internal/ast"
)

// NodeDefinition is one AST occurrence that contributed to a Node: a
// *ast.DtcRootNode (only for the root) or a *ast.DtcChildNode, paired with
// the URI of the file it was parsed from (needed to turn its token-index
// range back into a diag.Range).
type NodeDefinition struct {
	URI  string
	Node ast.Node
}

// NodeReference is one `&label { ... }` occurrence that merged into a
// Node.
type NodeReference struct {
	URI string
	Ref *ast.DtcRefNode
}

// LabelDef is one `name:` assignment attached to a Node or Property,
// paired with the URI of the file it appeared in.
type LabelDef struct {
	URI    string
	Assign *ast.LabelAssign
}

// Property is one logical property on a Node: the last-wins defining AST
// plus the chain of definitions it superseded, most recent first.
type Property struct {
	Name       string
	URI        string // file the CurrentAst definition came from
	CurrentAst *ast.DtcProperty
	Replaces   []*Property
}

// Labels returns the property's own label assignments (from its current
// defining AST), paired with this property's URI.
func (p *Property) Labels() []LabelDef {
	if p.CurrentAst == nil {
		return nil
	}
	out := make([]LabelDef, 0, len(p.CurrentAst.Labels))
	for _, la := range p.CurrentAst.Labels {
		out = append(out, LabelDef{URI: p.URI, Assign: la})
	}
	return out
}

// Node is one logical node in the merged tree, identified by its absolute
// path from the root. Children and Properties preserve first-appearance
// (insertion) order across the fold.
type Node struct {
	Name         string
	Parent       *Node
	Children     []*Node
	Properties   []*Property
	Definitions  []NodeDefinition
	ReferencedBy []NodeReference
	Labels       []LabelDef

	childIndex map[string]*Node
	propIndex  map[string]*Property
}

func newNode(name string, parent *Node) *Node {
	return &Node{
		Name:       name,
		Parent:     parent,
		childIndex: make(map[string]*Node),
		propIndex:  make(map[string]*Property),
	}
}

// Path returns the node's absolute path segments from root; the root
// itself has a nil (empty) Path.
func (n *Node) Path() []string {
	if n == nil || n.Parent == nil {
		return nil
	}
	return append(n.Parent.Path(), n.Name)
}

// PathString renders Path as a "/"-joined absolute path; the root is "/".
func (n *Node) PathString() string {
	segs := n.Path()
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

// ChildByName returns the existing child named name, or nil.
func (n *Node) ChildByName(name string) *Node { return n.childIndex[name] }

// GetOrCreateChild returns the existing child named name, creating and
// appending a new one if it does not already exist.
func (n *Node) GetOrCreateChild(name string) *Node {
	if c, ok := n.childIndex[name]; ok {
		return c
	}
	c := newNode(name, n)
	n.childIndex[name] = c
	n.Children = append(n.Children, c)
	return c
}

// AddDefinition appends an occurrence that contributed to this node.
func (n *Node) AddDefinition(uri string, el ast.Node) {
	n.Definitions = append(n.Definitions, NodeDefinition{URI: uri, Node: el})
}

// AddLabels appends labels attached to one occurrence of this node.
func (n *Node) AddLabels(uri string, labels []*ast.LabelAssign) {
	for _, la := range labels {
		n.Labels = append(n.Labels, LabelDef{URI: uri, Assign: la})
	}
}

// AddReference records a `&label { ... }` occurrence that merged into
// this node.
func (n *Node) AddReference(uri string, ref *ast.DtcRefNode) {
	n.ReferencedBy = append(n.ReferencedBy, NodeReference{URI: uri, Ref: ref})
}

// RemoveChild detaches and returns the child named name, or nil if it is
// not present. The detached subtree's labels no longer contribute to the
// tree's label pool once removed.
func (n *Node) RemoveChild(name string) *Node {
	c, ok := n.childIndex[name]
	if !ok {
		return nil
	}
	delete(n.childIndex, name)
	for i, ch := range n.Children {
		if ch == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			break
		}
	}
	return c
}

// PropertyByName returns the current (last-wins) property named name, or
// nil.
func (n *Node) PropertyByName(name string) *Property { return n.propIndex[name] }

// SetProperty installs d (parsed from file uri) as the current definition
// of the property named d.PropertyName, chaining any prior definition
// into the returned Property's Replaces. previous is nil if this is the
// property's first definition.
func (n *Node) SetProperty(uri string, d *ast.DtcProperty) (current, previous *Property) {
	prev := n.propIndex[d.PropertyName]
	p := &Property{Name: d.PropertyName, URI: uri, CurrentAst: d}
	if prev != nil {
		p.Replaces = append([]*Property{prev}, prev.Replaces...)
		for i, existing := range n.Properties {
			if existing == prev {
				n.Properties[i] = p
				break
			}
		}
	} else {
		n.Properties = append(n.Properties, p)
	}
	n.propIndex[d.PropertyName] = p
	return p, prev
}

// RemoveProperty deletes the current property named name, if present, and
// returns it.
func (n *Node) RemoveProperty(name string) *Property {
	p, ok := n.propIndex[name]
	if !ok {
		return nil
	}
	delete(n.propIndex, name)
	for i, existing := range n.Properties {
		if existing == p {
			n.Properties = append(n.Properties[:i], n.Properties[i+1:]...)
			break
		}
	}
	return p
}

// Tree is the merged, logical device tree produced by a ContextBuilder
// run.
type Tree struct {
	Root *Node

	labelIndex map[string]*Node
}

// NewTree constructs an empty tree with a fresh root node ("/").
func NewTree() *Tree {
	return &Tree{Root: newNode("", nil)}
}

// ResolveLabel returns the node carrying a `name:` label, or nil. The
// index is built lazily from the current (post-deletion) tree on first
// use and cached; call it only once the tree is final, since a node
// removed afterward would leave a stale entry.
func (t *Tree) ResolveLabel(name string) *Node {
	if t.labelIndex == nil {
		t.labelIndex = make(map[string]*Node)
		t.Walk(func(n *Node) {
			for _, ld := range n.Labels {
				if _, ok := t.labelIndex[ld.Assign.Name]; !ok {
					t.labelIndex[ld.Assign.Name] = n
				}
			}
		})
	}
	return t.labelIndex[name]
}

// ResolvePath walks segs from the root, returning the node at that path,
// or nil if any segment is missing.
func (t *Tree) ResolvePath(segs []string) *Node {
	n := t.Root
	for _, s := range segs {
		n = n.ChildByName(s)
		if n == nil {
			return nil
		}
	}
	return n
}

// Walk visits every node in the tree in depth-first, child-insertion
// order, starting at the root.
func (t *Tree) Walk(fn func(*Node)) {
	if t == nil || t.Root == nil {
		return
	}
	walkNode(t.Root, fn)
}

func walkNode(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		walkNode(c, fn)
	}
}
