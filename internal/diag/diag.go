// Package diag defines the closed diagnostic taxonomies shared by the
// lexer, parser, context builder, and validator.
package diag

import (
	"fmt"

	"github.com/devicetree-lang/dts-core/internal/text"
)

// Severity is a diagnostic severity level.
type Severity uint8

// Severity values, ordered least to most actionable for sort stability.
const (
	SeverityHint Severity = iota + 1
	SeverityInformation
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// Tag annotates a diagnostic with editor-facing hints.
type Tag uint8

// Tag values.
const (
	TagUnnecessary Tag = 1 << iota
	TagDeprecated
)

// Has reports whether all bits in mask are set.
func (t Tag) Has(mask Tag) bool { return t&mask == mask }

// Kind is the common interface implemented by SyntaxIssue, ContextIssue,
// and StandardTypeIssue.
type Kind interface {
	fmt.Stringer
	taxonomy() string
}

// SyntaxIssue enumerates parser-stage diagnostic kinds (spec §7).
type SyntaxIssue string

// SyntaxIssue values.
const (
	EndStatement              SyntaxIssue = "END_STATMENT"
	NodeAddress               SyntaxIssue = "NODE_ADDRESS"
	NodeNameAddressWhitespace SyntaxIssue = "NODE_NAME_ADDRESS_WHITE_SPACE"
	MissingBrace              SyntaxIssue = "MISSING_BRACE"
	UnexpectedToken           SyntaxIssue = "UNEXPECTED_TOKEN"
	UnterminatedString        SyntaxIssue = "UNTERMINATED_STRING"
)

func (s SyntaxIssue) String() string { return string(s) }
func (SyntaxIssue) taxonomy() string { return "SyntaxIssue" }

// ContextIssue enumerates cross-file tree-merge diagnostic kinds.
type ContextIssue string

// ContextIssue values.
const (
	DuplicateNodeName        ContextIssue = "DUPLICATE_NODE_NAME"
	DuplicatePropertyName    ContextIssue = "DUPLICATE_PROPERTY_NAME"
	NodeDoesNotExist         ContextIssue = "NODE_DOES_NOT_EXIST"
	PropertyDoesNotExist     ContextIssue = "PROPERTY_DOES_NOT_EXIST"
	UnableToResolveChildNode ContextIssue = "UNABLE_TO_RESOLVE_CHILD_NODE"
	LabelAlreadyInUse        ContextIssue = "LABEL_ALREADY_IN_USE"
)

func (c ContextIssue) String() string { return string(c) }
func (ContextIssue) taxonomy() string { return "ContextIssue" }

// StandardTypeIssue enumerates validator diagnostic kinds.
type StandardTypeIssue string

// StandardTypeIssue values.
const (
	Required                            StandardTypeIssue = "REQUIRED"
	Omitted                             StandardTypeIssue = "OMITTED"
	ExpectedEmpty                       StandardTypeIssue = "EXPECTED_EMPTY"
	ExpectedString                      StandardTypeIssue = "EXPECTED_STRING"
	ExpectedStringlist                  StandardTypeIssue = "EXPECTED_STRINGLIST"
	ExpectedU32                         StandardTypeIssue = "EXPECTED_U32"
	ExpectedU64                         StandardTypeIssue = "EXPECTED_U64"
	ExpectedPropEncodedArray            StandardTypeIssue = "EXPECTED_PROP_ENCODED_ARRAY"
	ExpectedOne                         StandardTypeIssue = "EXPECTED_ONE"
	ExpectedCompositeLength             StandardTypeIssue = "EXPECTED_COMPOSITE_LENGTH"
	ExpectedEnum                        StandardTypeIssue = "EXPECTED_ENUM"
	Ignored                             StandardTypeIssue = "IGNORED"
	PropertyRequiresOtherPropertyInNode StandardTypeIssue = "PROPERTY_REQUIRES_OTHER_PROPERTY_IN_NODE"
	InterruptsParentNodeNotFound        StandardTypeIssue = "INTERRUPTS_PARENT_NODE_NOT_FOUND"
	InterruptsValueCellMissMatch        StandardTypeIssue = "INTERRUPTS_VALUE_CELL_MISS_MATCH"
)

func (s StandardTypeIssue) String() string { return string(s) }
func (StandardTypeIssue) taxonomy() string { return "StandardTypeIssue" }

// AstRef identifies an AST element for linkedTo references without this
// package needing to import internal/ast (which itself may want to refer
// back to diag.Diagnostic for DocSymbol-adjacent bookkeeping).
type AstRef struct {
	URI   string
	Range text.Range
}

// Diagnostic is a single issue produced by any pipeline stage.
type Diagnostic struct {
	Kinds        []Kind
	URI          string // source file the diagnostic's Range is expressed in
	Range        text.Range
	Severity     Severity
	LinkedTo     []AstRef
	Tags         Tag
	TemplateArgs []string
	Message      string
	Source       string // "lexer" | "parser" | "context" | "validator"
}

// HasTag reports whether the diagnostic carries tag t.
func (d Diagnostic) HasTag(t Tag) bool { return d.Tags.Has(t) }

// DefaultSeverity returns the spec §6.2 default severity for a diagnostic
// kind: SyntaxIssue and every StandardTypeIssue except IGNORED default to
// Error, IGNORED defaults to Warning, the DUPLICATE_PROPERTY_NAME override
// hint defaults to Hint (it always carries TagUnnecessary alongside), and
// every other ContextIssue defaults to Warning.
func DefaultSeverity(k Kind) Severity {
	switch v := k.(type) {
	case SyntaxIssue:
		return SeverityError
	case StandardTypeIssue:
		if v == Ignored {
			return SeverityWarning
		}
		return SeverityError
	case ContextIssue:
		if v == DuplicatePropertyName {
			return SeverityHint
		}
		return SeverityWarning
	default:
		return SeverityWarning
	}
}
