// Package ast defines the tagged-union concrete syntax tree produced by
// internal/parser: one declaration tree per source file, decorated with
// token-index ranges, attached labels, and optional doc-symbol metadata.
package ast

import (
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/text"
)

// DocSymbol is an opaque payload describing a binding's documentation,
// shipped verbatim by the embedder (spec §1: documentation strings are an
// out-of-scope collaborator).
type DocSymbol struct {
	Name string
	Kind string
}

// Node is implemented by every concrete AST variant.
type Node interface {
	FirstToken() int
	LastToken() int
	LabelAssigns() []*LabelAssign
	Children() []Node
}

// Base carries the bookkeeping every concrete node shares: its token
// range, any labels attached before it, and optional doc-symbol metadata.
// Embed it by value in each concrete type.
type Base struct {
	First, Last int
	Labels      []*LabelAssign
	Doc         *DocSymbol
}

// FirstToken returns the index of the node's first token.
func (b *Base) FirstToken() int { return b.First }

// LastToken returns the index of the node's last token.
func (b *Base) LastToken() int { return b.Last }

// LabelAssigns returns the labels attached to this node, if any.
func (b *Base) LabelAssigns() []*LabelAssign { return b.Labels }

// RangeOf computes the character-position Range of n against the token
// slice it was parsed from.
func RangeOf(tokens []lexer.Token, n Node) text.Range {
	if n == nil || len(tokens) == 0 {
		return text.Range{}
	}
	first := clampTokenIndex(n.FirstToken(), len(tokens))
	last := clampTokenIndex(n.LastToken(), len(tokens))
	start := tokens[first].Pos
	end := tokens[last].Pos.End()
	return text.Range{Start: start, End: end}
}

func clampTokenIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// MemReserve is a parsed `/memreserve/ addr size;` line. It carries no
// token range of its own; diagnostics about it attach to the enclosing
// RootDoc.
type MemReserve struct {
	Address uint64
	Size    uint64
}

// RootDoc is the top-level declaration list of one source file.
type RootDoc struct {
	Base
	URI          string
	DtsVersion   bool // true once a `/dts-v1/;` marker was seen
	MemReserves  []MemReserve
	Includes     []string // raw targets of `/include/ "file";` directives
	Directives   []string // raw text of `#include`/`#define`/... preprocessor lines, never expanded
	Declarations []Node
}

// Children returns the top-level declarations.
func (r *RootDoc) Children() []Node { return r.Declarations }

// DtcRootNode is a `/{ ... };` block.
type DtcRootNode struct {
	Base
	Body []Node
}

// Children returns the node's body declarations.
func (n *DtcRootNode) Children() []Node { return n.Body }

// NodeName is the `name[@address]` head of a DtcChildNode.
type NodeName struct {
	Base
	Name       string
	HasAt      bool // an '@' token was present, even if the address is malformed/missing
	HasAddress bool
	Address    uint64
}

// Children returns nil; NodeName is a leaf.
func (n *NodeName) Children() []Node { return nil }

// DtcChildNode is a `name[@address] { ... };` block.
type DtcChildNode struct {
	Base
	Name *NodeName
	Body []Node
}

// Children returns the name (if present) followed by the body.
func (n *DtcChildNode) Children() []Node {
	out := make([]Node, 0, len(n.Body)+1)
	if n.Name != nil {
		out = append(out, n.Name)
	}
	return append(out, n.Body...)
}

// LabelRef is an `&name` reference.
type LabelRef struct {
	Base
	Name string
}

// Children returns nil; LabelRef is a leaf.
func (l *LabelRef) Children() []Node { return nil }

// DtcRefNode is a `&label { ... };` block.
type DtcRefNode struct {
	Base
	Ref  *LabelRef
	Body []Node
}

// Children returns the referenced label followed by the body.
func (n *DtcRefNode) Children() []Node {
	out := make([]Node, 0, len(n.Body)+1)
	if n.Ref != nil {
		out = append(out, n.Ref)
	}
	return append(out, n.Body...)
}

// DtcProperty is a `name = values;` or valueless `name;` declaration.
type DtcProperty struct {
	Base
	PropertyName string
	Values       []PropertyValue
}

// Children returns the property's values.
func (p *DtcProperty) Children() []Node {
	out := make([]Node, 0, len(p.Values))
	for _, v := range p.Values {
		out = append(out, v)
	}
	return out
}

// DeleteNode is a `/delete-node/ name;` or `/delete-node/ &label;`
// declaration.
type DeleteNode struct {
	Base
	Name string    // set when deleting by name
	Ref  *LabelRef // set when deleting by label reference
}

// Children returns the label reference, if this deletion targets one.
func (d *DeleteNode) Children() []Node {
	if d.Ref != nil {
		return []Node{d.Ref}
	}
	return nil
}

// DeleteProperty is a `/delete-property/ name;` declaration.
type DeleteProperty struct {
	Base
	Name string
}

// Children returns nil; DeleteProperty is a leaf.
func (d *DeleteProperty) Children() []Node { return nil }

// LabelAssign is a `name:` prefix attached to the following element.
type LabelAssign struct {
	Base
	Name string
}

// Children returns nil; LabelAssign is a leaf.
func (l *LabelAssign) Children() []Node { return nil }
