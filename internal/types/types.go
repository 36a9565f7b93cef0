// Package types defines the TypeCatalogue data model: PropertyType, the
// TypeSlot assignability rules, and the declarative PropertyBinding shape
// a catalogue entry is built from (spec §4.5).
package types

import (
	"regexp"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/runtime"
)

// PropertyType is one of the closed set of value shapes a property's
// value can take (spec §4.5).
type PropertyType uint16

// PropertyType values. The set is a bitmask so a Slot can name several
// acceptable types at once.
const (
	Empty PropertyType = 1 << iota
	U32
	U64
	String
	PropEncodedArray
	Stringlist
	Bytestring
	Unknown
)

func (t PropertyType) String() string {
	switch t {
	case Empty:
		return "empty"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case String:
		return "string"
	case PropEncodedArray:
		return "prop-encoded-array"
	case Stringlist:
		return "stringlist"
	case Bytestring:
		return "bytestring"
	default:
		return "unknown"
	}
}

// Classify maps a parsed property value to its PropertyType, per spec
// §4.6's illustrative classification: a one-cell <x> is a U32, a
// two-cell <x y> a U64, anything wider a PROP_ENCODED_ARRAY; a string is
// STRING; a label or node-path reference is treated as a single-cell U32
// regardless of the referenced node's #address-cells (spec §9's recorded
// open question — not guessed at, kept as the documented simplification).
func Classify(v ast.PropertyValue) PropertyType {
	switch val := v.(type) {
	case *ast.StringValue:
		return String
	case *ast.ArrayValues:
		switch len(val.Cells) {
		case 0:
			return Empty
		case 1:
			return U32
		case 2:
			return U64
		default:
			return PropEncodedArray
		}
	case *ast.LabelRefValue, *ast.NodePathValue:
		return U32
	case *ast.ByteString:
		return Bytestring
	default:
		return Unknown
	}
}

// ValueProfile classifies every top-level value of a property, one
// PropertyType per ast.PropertyValue entry. A valueless property (`foo;`)
// has an empty profile.
func ValueProfile(values []ast.PropertyValue) []PropertyType {
	out := make([]PropertyType, len(values))
	for i, v := range values {
		out[i] = Classify(v)
	}
	return out
}

// Slot is the set of PropertyTypes one position in a binding's TypeSpec
// will accept.
type Slot struct {
	accepted PropertyType
}

// NewSlot builds a Slot accepting exactly the listed types (subject to
// the assignability widenings Accepts applies on top).
func NewSlot(types ...PropertyType) Slot {
	var s PropertyType
	for _, t := range types {
		s |= t
	}
	return Slot{accepted: s}
}

// Accepts reports whether pt is compatible with the slot, applying the
// two named assignability widenings from spec §4.5: a STRINGLIST slot
// also accepts a bare STRING, and a PROP_ENCODED_ARRAY slot also accepts
// U32 or U64 (every narrower cell-array still satisfies the wider one).
func (s Slot) Accepts(pt PropertyType) bool {
	if s.accepted&Stringlist != 0 && (pt == String || pt == Stringlist) {
		return true
	}
	if s.accepted&PropEncodedArray != 0 && (pt == U32 || pt == U64) {
		return true
	}
	return s.accepted&pt != 0
}

// Names returns the slot's accepted type names, for diagnostic messages.
func (s Slot) Names() []string {
	var out []string
	for _, t := range []PropertyType{Empty, U32, U64, String, PropEncodedArray, Stringlist, Bytestring, Unknown} {
		if s.accepted&t != 0 {
			out = append(out, t.String())
		}
	}
	return out
}

// Requirement classifies whether a binding's property must, may, or must
// not be present on a matched node.
type Requirement uint8

// Requirement values.
const (
	RequirementOptional Requirement = iota
	RequirementRequired
	RequirementOmitted
)

// RequirementFunc computes a Requirement for a specific owning node,
// since spec §4.5 allows `required` to be "a function of the owning
// node" rather than always a fixed constant.
type RequirementFunc func(node *runtime.Node) Requirement

// Const returns a RequirementFunc that always yields r, for bindings with
// a fixed requirement regardless of the owning node.
func Const(r Requirement) RequirementFunc {
	return func(*runtime.Node) Requirement { return r }
}

// CheckContext is the data an AdditionalCheckFunc needs to inspect
// neighboring properties and nodes (spec §4.6's `interrupts-extended`
// walk is the motivating case: it must resolve phandle references and
// read a different property on the resolved node).
type CheckContext struct {
	Tree      *runtime.Tree
	Node      *runtime.Node
	Property  *runtime.Property
	Catalogue *Catalogue
	// TokensFor resolves a file's token slice by URI, to turn an AST
	// element's token-index range into a diag.Range.
	TokensFor func(uri string) []lexer.Token
}

// AdditionalCheckFunc produces extra diagnostics for one property match,
// beyond the slot/length dispatch Validate already performs.
type AdditionalCheckFunc func(cc *CheckContext) []diag.Diagnostic

// Binding is one TypeCatalogue entry: the full set of rules spec §4.5
// associates with a property name or pattern.
type Binding struct {
	// Name is used when Pattern is nil: an exact property-name match.
	Name string
	// Pattern, when set, matches any property name it accepts instead of
	// a literal Name.
	Pattern *regexp.Regexp

	TypeSpec []Slot
	// List indicates a single TypeSpec slot is repeated across every
	// value rather than TypeSpec describing a fixed-length composite.
	List bool

	Required RequirementFunc
	// Default is an optional human-readable default value description,
	// shipped verbatim (spec §4.5 "default value (optional)").
	Default string
	// Enum, when non-empty, restricts a STRING value to one of these
	// literal values.
	Enum []string

	AdditionalCheck AdditionalCheckFunc
}

// Matches reports whether the binding applies to a property named name.
func (b *Binding) Matches(name string) bool {
	if b.Pattern != nil {
		return b.Pattern.MatchString(name)
	}
	return b.Name == name
}

// Catalogue is the registry of PropertyBindings, keyed by literal name or
// pattern (spec §4.5).
type Catalogue struct {
	byName   map[string]*Binding
	patterns []*Binding
}

// NewCatalogue constructs an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{byName: make(map[string]*Binding)}
}

// Register adds a binding to the catalogue.
func (c *Catalogue) Register(b *Binding) {
	if b.Pattern != nil {
		c.patterns = append(c.patterns, b)
		return
	}
	c.byName[b.Name] = b
}

// AllLiteral returns every binding registered under a literal name, for
// callers that need to check a binding's requirement even when the
// property it names is absent from a given node.
func (c *Catalogue) AllLiteral() map[string]*Binding {
	return c.byName
}

// Match returns every registered binding whose name or pattern matches
// name: at most one literal match, plus every matching pattern, literal
// match first.
func (c *Catalogue) Match(name string) []*Binding {
	var out []*Binding
	if b, ok := c.byName[name]; ok {
		out = append(out, b)
	}
	for _, b := range c.patterns {
		if b.Matches(name) {
			out = append(out, b)
		}
	}
	return out
}
